package storage

import (
	"context"

	"countryreport/internal/domain"

	"github.com/google/uuid"
)

// RunStore implements domain.LoadRunStore.
type RunStore struct {
	db *DB
}

// NewRunStore creates a new RunStore.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

// ── Run Logs ───────────────────────────────────────────────

func (s *RunStore) CreateRun(ctx context.Context, run *domain.LoadRun) error {
	run.ID = uuid.New().String()
	_, err := s.db.conn.ExecContext(ctx, s.db.dialect.rebind(
		`INSERT INTO load_runs (id, source, started_at, finished_at, status, rows_read, rows_written, error_message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		run.ID, run.Source, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.Status,
		run.RowsRead, run.RowsWritten, run.Error,
	)
	if err != nil {
		return storeErr("record load run", err)
	}
	return nil
}

func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]domain.LoadRun, error) {
	rows, err := s.db.conn.QueryContext(ctx, s.db.dialect.rebind(
		`SELECT id, source, started_at, finished_at, status, rows_read, rows_written, error_message
		 FROM load_runs ORDER BY started_at DESC LIMIT ?`), limit)
	if err != nil {
		return nil, storeErr("list load runs", err)
	}
	defer rows.Close()

	var runs []domain.LoadRun
	for rows.Next() {
		var r domain.LoadRun
		if err := rows.Scan(
			&r.ID, &r.Source, &r.StartedAt, &r.FinishedAt, &r.Status,
			&r.RowsRead, &r.RowsWritten, &r.Error,
		); err != nil {
			return nil, storeErr("scan load run", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list load runs", err)
	}
	return runs, nil
}
