package etl

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ── Record ─────────────────────────────────────────────────
// Common intermediate data format.
// All sources emit Records; the engine normalizes them into countries.

// Record is one raw element of the source array, kept as undecoded JSON
// so normalization can probe nested fields without a fixed schema.
type Record struct {
	Raw json.RawMessage `json:"raw"`
}

// DecodeRecords splits a JSON array body into Records.
// Anything that is not valid JSON, or valid JSON that is not an array,
// is reported as a *FormatError carrying the raw body.
func DecodeRecords(body []byte) ([]Record, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field == "" {
			err = fmt.Errorf("expected a JSON array, got %s", typeErr.Value)
		}
		return nil, &FormatError{Err: err, Body: body}
	}
	if items == nil {
		// literal `null`
		return nil, &FormatError{Err: fmt.Errorf("expected a JSON array, got null"), Body: body}
	}

	records := make([]Record, len(items))
	for i, item := range items {
		records[i] = Record{Raw: item}
	}
	return records, nil
}
