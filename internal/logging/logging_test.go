package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewHandler_PlainOutputForBuffers(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, slog.LevelInfo))

	logger.Debug("hidden")
	logger.Info("etl: refresh finished", "rows_written", 250)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "etl: refresh finished")
	assert.Contains(t, out, "rows_written=250")
	assert.NotContains(t, out, "\x1b[", "no ANSI color when not writing to a terminal")
}

func TestSetup(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	require.NoError(t, Setup(&buf, "warn"))
	slog.Info("dropped")
	slog.Warn("kept")
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")

	assert.Error(t, Setup(&buf, "loud"))
}
