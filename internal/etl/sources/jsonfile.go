package sources

import (
	"context"
	"fmt"
	"os"

	"countryreport/internal/etl"
)

// ── JSON File Source ────────────────────────────────────────
// Reads the country array from a local JSON file. Same parsing rules as
// the HTTP source; useful offline and as a file-watch trigger.

type jsonFileSource struct{}

func init() { etl.RegisterSource(&jsonFileSource{}) }

func (s *jsonFileSource) Spec() etl.SourceSpec {
	return etl.SourceSpec{
		Type:  "json_file",
		Label: "JSON File",
		ConfigFields: []etl.ConfigField{
			{Key: "filePath", Label: "File Path", Required: true, Help: "Path to a JSON file holding an array of countries"},
		},
	}
}

func (s *jsonFileSource) Read(ctx context.Context, cfg etl.SourceConfig) (<-chan etl.Record, <-chan error) {
	return stream(ctx, func() ([]etl.Record, error) { return readJSONFile(cfg) })
}

func readJSONFile(cfg etl.SourceConfig) ([]etl.Record, error) {
	path, _ := cfg["filePath"].(string)
	if path == "" {
		return nil, fmt.Errorf("filePath is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return etl.DecodeRecords(data)
}
