package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoad_AllFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	content := `source:
  url: https://example.test/all
  file: ./countries.json
  timeout: 5s
database:
  driver: postgres
  host: db
  port: 5433
  name: geo
  user: report
  password: secret
  sslmode: require
mirror:
  mongo_uri: mongodb://localhost:27017
  database: geo
  collection: snapshot
schedule: "@every 30m"
locale: de
log_level: debug
trace_sql: true
metrics_file: /var/lib/node_exporter/countryreport.prom
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://example.test/all", cfg.Source.URL)
	assert.Equal(t, "./countries.json", cfg.Source.File)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "secret", cfg.Database.Password)
	assert.Equal(t, "snapshot", cfg.Mirror.Collection)
	assert.Equal(t, "@every 30m", cfg.Schedule)
	assert.Equal(t, "de", cfg.Locale)
	assert.True(t, cfg.TraceSQL)
	assert.Equal(t, "/var/lib/node_exporter/countryreport.prom", cfg.MetricsFile)

	d, err := cfg.HTTPTimeout()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, d)
}

func TestLoad_MinimalYAMLKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("locale: fr\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "fr", cfg.Locale)
	assert.Equal(t, DefaultURL, cfg.Source.URL)
	assert.Equal(t, DefaultDBPath, cfg.Database.Path)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_FileNotFound(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), FileName))
	assert.True(t, errors.Is(err, ErrConfigNotFound), "expected ErrConfigNotFound, got: %v", err)
	assert.Nil(t, cfg)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("{{invalid"), 0644))

	cfg, err := Load(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	d, err := cfg.HTTPTimeout()
	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, d)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"COUNTRYREPORT_SOURCE_URL": "https://mirror.test/all",
		"COUNTRYREPORT_DB_DRIVER":  "mysql",
		"COUNTRYREPORT_DB_HOST":    "db",
		"COUNTRYREPORT_DB_PORT":    "3307",
		"COUNTRYREPORT_TRACE_SQL":  "true",
		"UNRELATED":                "x",
	}))
	require.NoError(t, err)

	assert.Equal(t, "https://mirror.test/all", cfg.Source.URL)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, 3307, cfg.Database.Port)
	assert.True(t, cfg.TraceSQL)
	assert.Equal(t, DefaultDBPath, cfg.Database.Path)
}

func TestApplyEnv_BadValues(t *testing.T) {
	err := Default().ApplyEnv(envMap(map[string]string{"COUNTRYREPORT_DB_PORT": "abc"}))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	err = Default().ApplyEnv(envMap(map[string]string{"COUNTRYREPORT_TRACE_SQL": "maybe"}))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"default", func(*Config) {}, true},
		{"file source only", func(c *Config) { c.Source.URL = ""; c.Source.File = "x.json" }, true},
		{"no source", func(c *Config) { c.Source.URL = "" }, false},
		{"bad timeout", func(c *Config) { c.Source.Timeout = "soon" }, false},
		{"negative timeout", func(c *Config) { c.Source.Timeout = "-1s" }, false},
		{"zero timeout", func(c *Config) { c.Source.Timeout = "0" }, true},
		{"sqlite without path", func(c *Config) { c.Database.Path = "" }, false},
		{"postgres without host", func(c *Config) { c.Database.Driver = "postgres" }, false},
		{"postgres with dsn", func(c *Config) { c.Database.Driver = "postgres"; c.Database.DSN = "postgres://x" }, true},
		{"unknown driver", func(c *Config) { c.Database.Driver = "oracle" }, false},
		{"unknown log level", func(c *Config) { c.LogLevel = "loud" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}
