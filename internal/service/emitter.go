package service

import (
	"context"
	"sync"
)

// Events emitted by RefreshService.
const (
	EventRefreshed = "countries:refreshed"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter: decouples services from their presentation
// ─────────────────────────────────────────────────────────────

// EventEmitter receives service events. The CLI prints a report on
// EventRefreshed; tests record calls with MockEmitter.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// EmitterFunc adapts a function to EventEmitter.
type EmitterFunc func(ctx context.Context, event string, data any)

func (f EmitterFunc) Emit(ctx context.Context, event string, data any) { f(ctx, event, data) }

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, string, any) {}

// MockEmitter is a test-friendly EventEmitter that records all calls.
// Emit may be called from watcher goroutines.
type MockEmitter struct {
	mu     sync.Mutex
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}

// Count returns how many times event was emitted.
func (m *MockEmitter) Count(event string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.Events {
		if e.Event == event {
			n++
		}
	}
	return n
}
