// Package metrics keeps refresh counters and writes them in Prometheus
// text format, suitable for the node_exporter textfile collector.
package metrics

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	vm "github.com/VictoriaMetrics/metrics"

	"countryreport/internal/domain"
)

// Recorder holds the refresh metrics of one process.
type Recorder struct {
	path string
	set  *vm.Set

	loadsOK   *vm.Counter
	loadsFail *vm.Counter
	duration  *vm.Histogram
	rows      atomic.Int64
}

// New creates a Recorder. When path is empty Flush is a no-op.
func New(path string) *Recorder {
	r := &Recorder{path: path, set: vm.NewSet()}
	r.loadsOK = r.set.NewCounter(`countryreport_loads_total{status="success"}`)
	r.loadsFail = r.set.NewCounter(`countryreport_loads_total{status="error"}`)
	r.duration = r.set.NewHistogram(`countryreport_load_duration_seconds`)
	r.set.NewGauge(`countryreport_snapshot_rows`, func() float64 {
		return float64(r.rows.Load())
	})
	return r
}

// ObserveLoad records the outcome of one refresh. The row gauge only moves
// on success since a failed refresh leaves the snapshot as it was.
func (r *Recorder) ObserveLoad(status string, rows int, took time.Duration) {
	r.duration.Update(took.Seconds())
	if status == domain.RunStatusSuccess {
		r.loadsOK.Inc()
		r.rows.Store(int64(rows))
		return
	}
	r.loadsFail.Inc()
}

// WritePrometheus writes all metrics in text exposition format.
func (r *Recorder) WritePrometheus(w io.Writer) {
	r.set.WritePrometheus(w)
}

// Flush replaces the metrics file with the current values.
func (r *Recorder) Flush() error {
	if r.path == "" {
		return nil
	}
	var buf bytes.Buffer
	r.WritePrometheus(&buf)
	return writeFileAtomic(r.path, buf.Bytes())
}

// writeFileAtomic writes to a temp file in the target directory and renames
// it over path, so a scraper never reads a half-written file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp metrics file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write metrics: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close metrics file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("chmod metrics file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
