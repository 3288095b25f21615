package etl

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ── Source ──────────────────────────────────────────────────
// A Source extracts the raw country array from an external system.
// Implementations live in etl/sources/, one file per source type.

// SourceConfig is an opaque configuration map parsed per source type.
type SourceConfig map[string]any

// ConfigField describes a single configuration input for a source.
type ConfigField struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
	Help     string `json:"help,omitempty"`
}

// SourceSpec describes a source type and the config keys it reads.
type SourceSpec struct {
	Type         string        `json:"type"`
	Label        string        `json:"label"`
	ConfigFields []ConfigField `json:"configFields"`
}

// Source is the interface every data source must implement.
type Source interface {
	// Spec returns metadata about this source type.
	Spec() SourceSpec

	// Read streams records from the source into a channel.
	// The channel is closed when all records have been read or ctx is cancelled.
	// Errors are sent on the error channel (buffered size 1).
	Read(ctx context.Context, cfg SourceConfig) (<-chan Record, <-chan error)
}

// ValidateConfig checks that every required field of spec is set to a
// non-empty value in cfg.
func ValidateConfig(spec SourceSpec, cfg SourceConfig) error {
	var missing []string
	for _, f := range spec.ConfigFields {
		if !f.Required {
			continue
		}
		switch v := cfg[f.Key].(type) {
		case nil:
			missing = append(missing, f.Key)
		case string:
			if v == "" {
				missing = append(missing, f.Key)
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s source: missing required config %s", spec.Type, strings.Join(missing, ", "))
	}
	return nil
}

// ── Source Registry ────────────────────────────────────────
// Sources register themselves from init(); importing etl/sources is enough.

var (
	registryMu sync.RWMutex
	registry   = map[string]Source{}
)

// RegisterSource registers a source by its spec type.
func RegisterSource(s Source) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[s.Spec().Type] = s
}

// GetSource returns a registered source by type, or an error if not found.
func GetSource(typ string) (Source, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	s, ok := registry[typ]
	if !ok {
		return nil, fmt.Errorf("unknown source type: %q", typ)
	}
	return s, nil
}

// ListSources returns the specs of all registered sources, sorted by type.
func ListSources() []SourceSpec {
	registryMu.RLock()
	defer registryMu.RUnlock()
	specs := make([]SourceSpec, 0, len(registry))
	for _, s := range registry {
		specs = append(specs, s.Spec())
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Type < specs[j].Type })
	return specs
}
