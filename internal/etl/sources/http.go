package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"countryreport/internal/etl"
)

// ── HTTP Source ─────────────────────────────────────────────
// Fetches the country array from a REST endpoint with a single GET.
// No retries: any failure aborts the refresh.

// DefaultURL is the public country endpoint. The fields filter is required
// by the v3.1 /all route.
const DefaultURL = "https://restcountries.com/v3.1/all?fields=name,population,area,region"

type httpSource struct{}

func init() { etl.RegisterSource(&httpSource{}) }

func (s *httpSource) Spec() etl.SourceSpec {
	return etl.SourceSpec{
		Type:  "http",
		Label: "HTTP API",
		ConfigFields: []etl.ConfigField{
			{Key: "url", Label: "URL", Required: true, Help: "Endpoint returning a JSON array of countries"},
			{Key: "timeout", Label: "Timeout", Required: false, Help: "Request timeout (time.Duration); zero waits indefinitely"},
		},
	}
}

func (s *httpSource) Read(ctx context.Context, cfg etl.SourceConfig) (<-chan etl.Record, <-chan error) {
	return stream(ctx, func() ([]etl.Record, error) { return fetchHTTP(ctx, cfg) })
}

func fetchHTTP(ctx context.Context, cfg etl.SourceConfig) ([]etl.Record, error) {
	url, _ := cfg["url"].(string)
	if url == "" {
		return nil, fmt.Errorf("url is required")
	}
	timeout, _ := cfg["timeout"].(time.Duration)

	client := &http.Client{Timeout: timeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &etl.StatusError{StatusCode: resp.StatusCode, Body: body}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return etl.DecodeRecords(data)
}

// stream adapts a batch fetch to the channel-based Source contract.
func stream(ctx context.Context, fetch func() ([]etl.Record, error)) (<-chan etl.Record, <-chan error) {
	out := make(chan etl.Record, 100)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		records, err := fetch()
		if err != nil {
			errCh <- err
			return
		}
		for _, rec := range records {
			select {
			case out <- rec:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, errCh
}
