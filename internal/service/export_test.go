package service

import "time"

// SetFileDebounce shortens the file watcher debounce for tests.
func SetFileDebounce(d time.Duration) (restore func()) {
	prev := fileDebounce
	fileDebounce = d
	return func() { fileDebounce = prev }
}
