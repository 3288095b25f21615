package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"countryreport/internal/etl"
)

func readAll(t *testing.T, src etl.Source, cfg etl.SourceConfig) ([]etl.Record, error) {
	t.Helper()
	recCh, errCh := src.Read(context.Background(), cfg)
	var out []etl.Record
	for r := range recCh {
		out = append(out, r)
	}
	return out, <-errCh
}

func TestHTTPSource_ReadsArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"name":{"common":"Atlantis"}},{"name":{"common":"Nowhere"}}]`))
	}))
	defer srv.Close()

	src, err := etl.GetSource("http")
	require.NoError(t, err)

	records, err := readAll(t, src, etl.SourceConfig{"url": srv.URL})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Atlantis", etl.Normalize(records[0]).Name)
}

func TestHTTPSource_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	src, _ := etl.GetSource("http")
	records, err := readAll(t, src, etl.SourceConfig{"url": srv.URL})
	assert.Empty(t, records)

	var statusErr *etl.StatusError
	require.True(t, errors.As(err, &statusErr), "expected StatusError, got %v", err)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
}

func TestHTTPSource_RedirectStatusIsNotSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotModified)
	}))
	defer srv.Close()

	src, _ := etl.GetSource("http")
	_, err := readAll(t, src, etl.SourceConfig{"url": srv.URL})

	var statusErr *etl.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotModified, statusErr.StatusCode)
}

func TestHTTPSource_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	src, _ := etl.GetSource("http")
	_, err := readAll(t, src, etl.SourceConfig{"url": srv.URL})

	var formatErr *etl.FormatError
	require.True(t, errors.As(err, &formatErr), "expected FormatError, got %v", err)
	assert.Equal(t, "<html>maintenance</html>", string(formatErr.Body))
}

func TestHTTPSource_MissingURL(t *testing.T) {
	src, _ := etl.GetSource("http")
	_, err := readAll(t, src, etl.SourceConfig{})
	assert.Error(t, err)
}

func TestJSONFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "countries.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"region":"Europe"},{}]`), 0o644))

	src, err := etl.GetSource("json_file")
	require.NoError(t, err)

	records, err := readAll(t, src, etl.SourceConfig{"filePath": path})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Europe", etl.Normalize(records[0]).Region)
	assert.Equal(t, "Unknown", etl.Normalize(records[1]).Region)
}

func TestJSONFileSource_MissingFile(t *testing.T) {
	src, _ := etl.GetSource("json_file")
	_, err := readAll(t, src, etl.SourceConfig{"filePath": filepath.Join(t.TempDir(), "nope.json")})
	assert.Error(t, err)
}

func TestListSources_Registered(t *testing.T) {
	var types []string
	for _, s := range etl.ListSources() {
		types = append(types, s.Type)
	}
	assert.Contains(t, types, "http")
	assert.Contains(t, types, "json_file")
}
