package etl

import "fmt"

// StatusError is returned when the source endpoint answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d", e.StatusCode)
}

// FormatError is returned when the source payload cannot be parsed.
// Body holds the raw payload for diagnosis.
type FormatError struct {
	Err  error
	Body []byte
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("parse json: %v", e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }
