package service

import (
	"context"
	"sync"
)

// ExportedRunningGuard is an exported alias so _test packages can test the guard.
type ExportedRunningGuard = runningGuard

// ─────────────────────────────────────────────────────────────
// runningGuard: at most one holder per key
// ─────────────────────────────────────────────────────────────

// runningGuard refuses a second concurrent holder of the same key instead
// of queueing it. WaitAll lets shutdown drain whatever is still running.
type runningGuard struct {
	mu      sync.Mutex
	running map[string]struct{}
	wg      sync.WaitGroup
}

// TryLock marks key as running. It returns false if key is already held.
func (g *runningGuard) TryLock(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running == nil {
		g.running = make(map[string]struct{})
	}
	if _, ok := g.running[key]; ok {
		return false
	}
	g.running[key] = struct{}{}
	g.wg.Add(1)
	return true
}

// Unlock releases key. Must only follow a successful TryLock.
func (g *runningGuard) Unlock(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.running, key)
	g.wg.Done()
}

// Running reports whether key is currently held.
func (g *runningGuard) Running(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.running[key]
	return ok
}

// WaitAll blocks until every holder has unlocked or ctx is cancelled.
func (g *runningGuard) WaitAll(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
