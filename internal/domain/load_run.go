package domain

import (
	"context"
	"time"
)

// Load run statuses.
const (
	RunStatusSuccess = "success"
	RunStatusError   = "error"
)

// LoadRun is the audit record of a single snapshot refresh.
type LoadRun struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	StartedAt   time.Time `json:"startedAt"`
	FinishedAt  time.Time `json:"finishedAt"`
	Status      string    `json:"status"`
	RowsRead    int       `json:"rowsRead"`
	RowsWritten int       `json:"rowsWritten"`
	Error       string    `json:"error,omitempty"`
}

// LoadRunStore persists refresh history.
type LoadRunStore interface {
	CreateRun(ctx context.Context, run *LoadRun) error
	ListRuns(ctx context.Context, limit int) ([]LoadRun, error)
}
