package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"countryreport/internal/domain"
	"countryreport/internal/etl"
	_ "countryreport/internal/etl/sources"
	"countryreport/internal/service"
	"countryreport/internal/storage"
)

const atlantisJSON = `[
	{"name":{"common":"Atlantis"},"population":1000,"area":100,"region":"Mythica"},
	{"name":{"common":"Nowhere"},"population":0,"area":0,"region":""}
]`

type harness struct {
	countries *storage.CountryStore
	runs      *storage.RunStore
	emitter   *service.MockEmitter
	metrics   *fakeMetrics
	file      string
}

func newHarness(t *testing.T, body string) *harness {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.Open(storage.Connection{Driver: storage.DriverSQLite, Path: filepath.Join(dir, "countries.db")}, storage.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := &harness{
		countries: storage.NewCountryStore(db),
		runs:      storage.NewRunStore(db),
		emitter:   &service.MockEmitter{},
		metrics:   &fakeMetrics{},
		file:      filepath.Join(dir, "countries.json"),
	}
	if body != "" {
		require.NoError(t, os.WriteFile(h.file, []byte(body), 0644))
	}
	return h
}

func (h *harness) service(dest etl.Destination, mirror etl.Destination) *service.RefreshService {
	if dest == nil {
		dest = &etl.StoreWriter{Store: h.countries}
	}
	return service.NewRefreshService(service.Deps{
		Engine:  &etl.Engine{Dest: dest},
		Job:     &etl.SyncJob{SourceType: "json_file", SourceCfg: etl.SourceConfig{"filePath": h.file}},
		Runs:    h.runs,
		Mirror:  mirror,
		Metrics: h.metrics,
		Emitter: h.emitter,
	})
}

type fakeMetrics struct {
	mu       sync.Mutex
	statuses []string
	flushes  int
}

func (m *fakeMetrics) ObserveLoad(status string, _ int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, status)
}

func (m *fakeMetrics) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushes++
	return nil
}

type failingMirror struct{}

func (failingMirror) Write(context.Context, []domain.Country) (int, error) {
	return 0, errors.New("mongo unreachable")
}

// blockingDest holds the refresh inside Write until released.
type blockingDest struct {
	entered chan struct{}
	release chan struct{}
}

func (d *blockingDest) Write(ctx context.Context, countries []domain.Country) (int, error) {
	close(d.entered)
	<-d.release
	return len(countries), nil
}

// ─────────────────────────────────────────────────────────────
// Refresh
// ─────────────────────────────────────────────────────────────

func TestRefresh_Success(t *testing.T) {
	h := newHarness(t, atlantisJSON)
	svc := h.service(nil, nil)
	ctx := context.Background()

	result, err := svc.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusSuccess, result.Status)
	assert.Equal(t, 2, result.RowsWritten)

	total, err := h.countries.CountAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	runs, err := h.runs.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domain.RunStatusSuccess, runs[0].Status)
	assert.Equal(t, "json_file:"+h.file, runs[0].Source)
	assert.Empty(t, runs[0].Error)

	assert.Equal(t, 1, h.emitter.Count(service.EventRefreshed))
	assert.Equal(t, []string{domain.RunStatusSuccess}, h.metrics.statuses)
	assert.Equal(t, 1, h.metrics.flushes)
}

func TestRefresh_FormatErrorLeavesStoreUntouched(t *testing.T) {
	h := newHarness(t, `{"oops":`)
	svc := h.service(nil, nil)
	ctx := context.Background()

	_, err := svc.Refresh(ctx)
	var fe *etl.FormatError
	require.ErrorAs(t, err, &fe)

	ok, err := h.countries.HasSnapshot(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "countries table must not be created by a failed fetch")

	runs, err := h.runs.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domain.RunStatusError, runs[0].Status)
	assert.Contains(t, runs[0].Error, "parse json")

	assert.Zero(t, h.emitter.Count(service.EventRefreshed))
	assert.Equal(t, []string{domain.RunStatusError}, h.metrics.statuses)
}

func TestRefresh_MirrorFailureIsNotFatal(t *testing.T) {
	h := newHarness(t, atlantisJSON)
	svc := h.service(nil, failingMirror{})

	result, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusSuccess, result.Status)
	assert.Equal(t, 1, h.emitter.Count(service.EventRefreshed))
}

func TestRefresh_ConcurrentCallIsRejected(t *testing.T) {
	h := newHarness(t, atlantisJSON)
	dest := &blockingDest{entered: make(chan struct{}), release: make(chan struct{})}
	svc := h.service(dest, nil)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := svc.Refresh(ctx)
		done <- err
	}()

	select {
	case <-dest.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first refresh never reached the destination")
	}
	assert.True(t, svc.Running())

	_, err := svc.Refresh(ctx)
	assert.ErrorIs(t, err, service.ErrRefreshRunning)

	close(dest.release)
	require.NoError(t, <-done)
	assert.False(t, svc.Running())
}

// ─────────────────────────────────────────────────────────────
// Watch
// ─────────────────────────────────────────────────────────────

func TestWatch_InvalidSchedule(t *testing.T) {
	h := newHarness(t, atlantisJSON)
	svc := h.service(nil, nil)

	err := svc.Watch(context.Background(), service.WatchOptions{Schedule: "every now and then"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid schedule")
	assert.Zero(t, h.emitter.Count(service.EventRefreshed), "no refresh before the schedule is valid")
}

func TestWatch_RefreshesOnStartupAndFileChange(t *testing.T) {
	defer service.SetFileDebounce(20 * time.Millisecond)()

	h := newHarness(t, atlantisJSON)
	svc := h.service(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- svc.Watch(ctx, service.WatchOptions{Schedule: "@every 1h", FilePath: h.file})
	}()

	require.Eventually(t, func() bool {
		return h.emitter.Count(service.EventRefreshed) >= 1
	}, 3*time.Second, 10*time.Millisecond, "startup refresh")

	updated := `[{"name":{"common":"Lemuria"},"population":5,"area":5,"region":"Mythica"}]`
	require.NoError(t, os.WriteFile(h.file, []byte(updated), 0644))

	require.Eventually(t, func() bool {
		return h.emitter.Count(service.EventRefreshed) >= 2
	}, 3*time.Second, 10*time.Millisecond, "file-triggered refresh")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not stop after cancel")
	}

	total, err := h.countries.CountAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}
