// Package config loads countryreport settings from YAML, the environment and flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

const (
	FileName = "countryreport.yaml"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "COUNTRYREPORT_"

	DefaultURL     = "https://restcountries.com/v3.1/all?fields=name,population,area,region"
	DefaultTimeout = "60s"
	DefaultDBPath  = "countries.db"
)

type SourceConfig struct {
	URL     string `yaml:"url"`
	File    string `yaml:"file,omitempty"`
	Timeout string `yaml:"timeout"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path,omitempty"`
	DSN      string `yaml:"dsn,omitempty"`
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Name     string `yaml:"name,omitempty"`
	User     string `yaml:"user,omitempty"`
	Password string `yaml:"password,omitempty"`
	SSLMode  string `yaml:"sslmode,omitempty"`
}

type MirrorConfig struct {
	MongoURI   string `yaml:"mongo_uri,omitempty"`
	Database   string `yaml:"database,omitempty"`
	Collection string `yaml:"collection,omitempty"`
}

type Config struct {
	Source      SourceConfig   `yaml:"source"`
	Database    DatabaseConfig `yaml:"database"`
	Mirror      MirrorConfig   `yaml:"mirror"`
	Schedule    string         `yaml:"schedule,omitempty"`
	Locale      string         `yaml:"locale"`
	LogLevel    string         `yaml:"log_level"`
	TraceSQL    bool           `yaml:"trace_sql,omitempty"`
	MetricsFile string         `yaml:"metrics_file,omitempty"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Source:   SourceConfig{URL: DefaultURL, Timeout: DefaultTimeout},
		Database: DatabaseConfig{Driver: "sqlite", Path: DefaultDBPath},
		Locale:   "en",
		LogLevel: "info",
	}
}

// Load reads path on top of Default. Keys absent from the file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from COUNTRYREPORT_* variables found by lookup
// (usually os.LookupEnv).
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"SOURCE_URL":        &c.Source.URL,
		"SOURCE_FILE":       &c.Source.File,
		"SOURCE_TIMEOUT":    &c.Source.Timeout,
		"DB_DRIVER":         &c.Database.Driver,
		"DB_PATH":           &c.Database.Path,
		"DB_DSN":            &c.Database.DSN,
		"DB_HOST":           &c.Database.Host,
		"DB_NAME":           &c.Database.Name,
		"DB_USER":           &c.Database.User,
		"DB_PASSWORD":       &c.Database.Password,
		"DB_SSLMODE":        &c.Database.SSLMode,
		"MIRROR_MONGO_URI":  &c.Mirror.MongoURI,
		"MIRROR_DATABASE":   &c.Mirror.Database,
		"MIRROR_COLLECTION": &c.Mirror.Collection,
		"SCHEDULE":          &c.Schedule,
		"LOCALE":            &c.Locale,
		"LOG_LEVEL":         &c.LogLevel,
		"METRICS_FILE":      &c.MetricsFile,
	}
	for key, dst := range str {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}

	if v, ok := lookup(EnvPrefix + "DB_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %sDB_PORT: %v", ErrInvalidConfig, EnvPrefix, err)
		}
		c.Database.Port = port
	}
	if v, ok := lookup(EnvPrefix + "TRACE_SQL"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %sTRACE_SQL: %v", ErrInvalidConfig, EnvPrefix, err)
		}
		c.TraceSQL = b
	}
	return nil
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if c.Source.URL == "" && c.Source.File == "" {
		return fmt.Errorf("%w: source.url or source.file is required", ErrInvalidConfig)
	}
	if _, err := c.HTTPTimeout(); err != nil {
		return err
	}
	switch c.Database.Driver {
	case "", "sqlite":
		if c.Database.Path == "" && c.Database.DSN == "" {
			return fmt.Errorf("%w: database.path is required for sqlite", ErrInvalidConfig)
		}
	case "mysql", "postgres":
		if c.Database.DSN == "" && c.Database.Host == "" {
			return fmt.Errorf("%w: database.host or database.dsn is required for %s", ErrInvalidConfig, c.Database.Driver)
		}
	default:
		return fmt.Errorf("%w: unsupported database.driver %q", ErrInvalidConfig, c.Database.Driver)
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	return nil
}

// HTTPTimeout parses Source.Timeout. Empty means DefaultTimeout; "0" disables it.
func (c *Config) HTTPTimeout() (time.Duration, error) {
	s := c.Source.Timeout
	if s == "" {
		s = DefaultTimeout
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: source.timeout: %v", ErrInvalidConfig, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: source.timeout must not be negative", ErrInvalidConfig)
	}
	return d, nil
}
