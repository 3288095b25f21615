package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"countryreport/internal/config"
	"countryreport/internal/etl"
	"countryreport/internal/storage"
)

// Exit codes. Anything unclassified exits with ExitGeneralError.
const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitUsageError   = 2 // invalid arguments, flags or configuration
	ExitPanic        = 3
	ExitAPIError     = 10 // non-2xx response from the source
	ExitFormatError  = 11 // source body is not a JSON array
	ExitStoreError   = 12 // schema, insert, commit or query failure
)

// ExitCodeForError returns the process exit code for err.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var statusErr *etl.StatusError
	var formatErr *etl.FormatError
	switch {
	case errors.As(err, &statusErr):
		return ExitAPIError
	case errors.As(err, &formatErr):
		return ExitFormatError
	case errors.Is(err, storage.ErrStore):
		return ExitStoreError
	case errors.Is(err, config.ErrInvalidConfig), errors.Is(err, config.ErrConfigNotFound):
		return ExitUsageError
	}

	// cobra reports usage problems as plain errors.
	msg := err.Error()
	for _, prefix := range []string{"unknown command", "unknown flag", "unknown shorthand flag", "invalid argument", "accepts ", "required flag", "flag needs an argument"} {
		if strings.HasPrefix(msg, prefix) {
			return ExitUsageError
		}
	}
	return ExitGeneralError
}

// printDiagnostic writes the user-facing explanation of source and store
// failures to w and reports whether it did.
func printDiagnostic(w io.Writer, err error) bool {
	var statusErr *etl.StatusError
	if errors.As(err, &statusErr) {
		fmt.Fprintf(w, "API ERROR (HTTP %d)\n", statusErr.StatusCode)
		return true
	}
	var formatErr *etl.FormatError
	if errors.As(err, &formatErr) {
		fmt.Fprintf(w, "Wrong JSON format: %v\n", formatErr.Err)
		fmt.Fprintln(w, string(formatErr.Body))
		return true
	}
	if errors.Is(err, storage.ErrStore) {
		fmt.Fprintf(w, "STORE ERROR: %v\n", err)
		return true
	}
	return false
}
