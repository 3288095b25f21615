package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"countryreport/internal/domain"
	"countryreport/internal/etl"
)

// ─────────────────────────────────────────────────────────────
// RefreshService: snapshot refresh and its triggers
// ─────────────────────────────────────────────────────────────

// ErrRefreshRunning is returned when a refresh is requested while one is in flight.
var ErrRefreshRunning = errors.New("refresh already running")

const (
	refreshKey = "countries"

	// RefreshTimeout bounds one refresh end-to-end.
	RefreshTimeout = 5 * time.Minute

	// DefaultSchedule is used by Watch when no schedule is configured.
	DefaultSchedule = "@every 1h"
)

// fileDebounce coalesces bursts of write events on the source file.
var fileDebounce = 500 * time.Millisecond

// MetricsRecorder receives the outcome of each refresh.
type MetricsRecorder interface {
	ObserveLoad(status string, rows int, took time.Duration)
	Flush() error
}

// Deps wires a RefreshService. Runs, Mirror, Metrics and Emitter are optional.
type Deps struct {
	Engine  *etl.Engine
	Job     *etl.SyncJob
	Runs    domain.LoadRunStore
	Mirror  etl.Destination
	Metrics MetricsRecorder
	Emitter EventEmitter
}

// RefreshService refreshes the countries snapshot on demand or on triggers.
type RefreshService struct {
	engine  *etl.Engine
	job     *etl.SyncJob
	runs    domain.LoadRunStore
	mirror  etl.Destination
	metrics MetricsRecorder
	emitter EventEmitter
	guard   runningGuard
}

// NewRefreshService creates a RefreshService ready for use.
func NewRefreshService(d Deps) *RefreshService {
	emitter := d.Emitter
	if emitter == nil {
		emitter = noopEmitter{}
	}
	return &RefreshService{
		engine:  d.Engine,
		job:     d.Job,
		runs:    d.Runs,
		mirror:  d.Mirror,
		metrics: d.Metrics,
		emitter: emitter,
	}
}

// ── Run ────────────────────────────────────────────────────

// Refresh fetches the source and replaces the snapshot. Every attempt is
// recorded in the run log, failed or not. EventRefreshed is emitted with the
// *etl.SyncResult only on success.
func (s *RefreshService) Refresh(ctx context.Context) (*etl.SyncResult, error) {
	if !s.guard.TryLock(refreshKey) {
		return nil, ErrRefreshRunning
	}
	defer s.guard.Unlock(refreshKey)

	runCtx, cancel := context.WithTimeout(ctx, RefreshTimeout)
	defer cancel()

	source := s.job.Describe()
	slog.Info("etl: refresh started", "source", source)
	result, runErr := s.engine.RunSync(runCtx, s.job)

	// Bookkeeping must survive a cancelled caller.
	bgCtx := context.WithoutCancel(ctx)
	s.recordRun(bgCtx, source, result, runErr)
	s.observe(result)

	if runErr != nil {
		slog.Error("etl: refresh failed", "source", source, "err", runErr, "took", result.Duration)
		return result, runErr
	}
	slog.Info("etl: refresh finished",
		"source", source, "rows_read", result.RowsRead, "rows_written", result.RowsWritten, "took", result.Duration)

	if s.mirror != nil {
		if n, err := s.mirror.Write(runCtx, result.Countries); err != nil {
			slog.Warn("mirror: write failed", "err", err)
		} else {
			slog.Info("mirror: snapshot copied", "documents", n)
		}
	}

	s.emitter.Emit(ctx, EventRefreshed, result)
	return result, nil
}

// Running reports whether a refresh is in flight.
func (s *RefreshService) Running() bool {
	return s.guard.Running(refreshKey)
}

func (s *RefreshService) recordRun(ctx context.Context, source string, result *etl.SyncResult, runErr error) {
	if s.runs == nil {
		return
	}
	run := &domain.LoadRun{
		Source:      source,
		StartedAt:   result.StartedAt,
		FinishedAt:  result.StartedAt.Add(result.Duration),
		Status:      result.Status,
		RowsRead:    result.RowsRead,
		RowsWritten: result.RowsWritten,
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if err := s.runs.CreateRun(ctx, run); err != nil {
		slog.Warn("storage: could not record load run", "err", err)
	}
}

func (s *RefreshService) observe(result *etl.SyncResult) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveLoad(result.Status, result.RowsWritten, result.Duration)
	if err := s.metrics.Flush(); err != nil {
		slog.Warn("metrics: flush failed", "err", err)
	}
}

// ── Watchers (cron + file) ─────────────────────────────────

// WatchOptions configures Watch.
type WatchOptions struct {
	// Schedule is a robfig/cron spec; DefaultSchedule when empty.
	Schedule string
	// FilePath, when set, triggers a refresh whenever the file is written.
	FilePath string
}

// Watch refreshes once, then on every schedule tick and file change until
// ctx is cancelled. Failed refreshes are logged and do not stop watching.
// On return every in-flight refresh has finished or been given up on.
func (s *RefreshService) Watch(ctx context.Context, opts WatchOptions) error {
	schedule := opts.Schedule
	if schedule == "" {
		schedule = DefaultSchedule
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { s.trigger(ctx, "schedule") }); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	var watcher *fsnotify.Watcher
	if opts.FilePath != "" {
		w, err := s.watchFile(ctx, opts.FilePath)
		if err != nil {
			return err
		}
		watcher = w
		defer watcher.Close()
	}

	s.trigger(ctx, "startup")

	c.Start()
	slog.Info("etl cron: scheduled refresh", "schedule", schedule)

	<-ctx.Done()

	<-c.Stop().Done()
	drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.guard.WaitAll(drainCtx)
	slog.Info("etl watcher: stopped")
	return nil
}

func (s *RefreshService) trigger(ctx context.Context, reason string) {
	if ctx.Err() != nil {
		return
	}
	slog.Debug("etl: refresh triggered", "reason", reason)
	if _, err := s.Refresh(ctx); errors.Is(err, ErrRefreshRunning) {
		slog.Info("etl: refresh skipped, one is already running", "reason", reason)
	}
}

// watchFile watches the parent directory so editors that replace the file
// (write to temp + rename) are still seen.
func (s *RefreshService) watchFile(ctx context.Context, path string) (*fsnotify.Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("bad watch path %q: %w", path, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch dir %q: %w", filepath.Dir(absPath), err)
	}

	go func() {
		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if p, _ := filepath.Abs(event.Name); p != absPath {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(fileDebounce, func() {
					slog.Info("etl watcher: file changed", "path", absPath)
					s.trigger(ctx, "file")
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("etl watcher: error", "err", err)
			}
		}
	}()

	slog.Info("etl watcher: watching file", "path", absPath)
	return watcher, nil
}
