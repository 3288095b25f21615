package etl

import (
	"context"
	"fmt"
	"time"

	"countryreport/internal/domain"
)

// ── SyncJob ────────────────────────────────────────────────
// Orchestrates: source.Read → normalize → destination.Write.

// SyncJob names the source a refresh reads from.
type SyncJob struct {
	SourceType string       `json:"sourceType"`
	SourceCfg  SourceConfig `json:"sourceConfig"`
}

// Describe returns a short human label for logs and run records.
func (j *SyncJob) Describe() string {
	for _, key := range []string{"url", "filePath"} {
		if v, ok := j.SourceCfg[key].(string); ok && v != "" {
			return j.SourceType + ":" + v
		}
	}
	return j.SourceType
}

// SyncResult is the outcome of running a sync job.
type SyncResult struct {
	Status      string        `json:"status"` // "success" | "error"
	RowsRead    int           `json:"rowsRead"`
	RowsWritten int           `json:"rowsWritten"`
	StartedAt   time.Time     `json:"startedAt"`
	Duration    time.Duration `json:"duration"`
	Error       string        `json:"error,omitempty"`

	// Countries is the normalized snapshot that was written.
	Countries []domain.Country `json:"-"`
}

// ── Engine ─────────────────────────────────────────────────

// Engine runs sync jobs using the registered sources and a destination.
type Engine struct {
	Dest Destination
}

// RunSync executes a sync job end-to-end.
// The destination is only touched after the source has been read completely
// and without error.
func (e *Engine) RunSync(ctx context.Context, job *SyncJob) (*SyncResult, error) {
	start := time.Now()
	result := &SyncResult{StartedAt: start}
	fail := func(err error) (*SyncResult, error) {
		result.Status = domain.RunStatusError
		result.Error = err.Error()
		result.Duration = time.Since(start)
		return result, err
	}

	// 1. Resolve source from registry.
	source, err := GetSource(job.SourceType)
	if err != nil {
		return fail(err)
	}
	if err := ValidateConfig(source.Spec(), job.SourceCfg); err != nil {
		return fail(err)
	}

	// 2. Read every record before touching the destination.
	recCh, errCh := source.Read(ctx, job.SourceCfg)
	var records []Record
	for rec := range recCh {
		records = append(records, rec)
	}
	if err := <-errCh; err != nil {
		return fail(err)
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	result.RowsRead = len(records)

	// 3. Normalize.
	countries := NormalizeAll(records)

	// 4. Replace the snapshot.
	written, err := e.Dest.Write(ctx, countries)
	if err != nil {
		return fail(fmt.Errorf("write: %w", err))
	}

	result.Status = domain.RunStatusSuccess
	result.RowsWritten = written
	result.Countries = countries
	result.Duration = time.Since(start)
	return result, nil
}
