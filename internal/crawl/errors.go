package crawl

import (
	"errors"
	"fmt"
)

var (
	// ErrFetch marks listing page failures; they abort the run.
	ErrFetch = errors.New("list page fetch failed")
	// ErrDetail marks per-item detail failures; the run continues.
	ErrDetail = errors.New("detail fetch failed")
	// ErrSink marks output write failures; they abort the run.
	ErrSink = errors.New("sink write failed")
	// ErrInvalidCheckpoint is returned when the stored page checkpoint is not a positive integer.
	ErrInvalidCheckpoint = errors.New("invalid checkpoint")
)

// FetchError reports a listing page that could not be retrieved or parsed.
type FetchError struct {
	Page int
	URL  string
	Err  error
}

func (e *FetchError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("fetch page %d (%s): %v", e.Page, e.URL, e.Err)
	}
	return fmt.Sprintf("fetch page %d: %v", e.Page, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrFetch }

// DetailError reports a failed detail fetch. Snapshot holds whatever body was
// received, for evidence.
type DetailError struct {
	ID       string
	URL      string
	Status   int
	Snapshot []byte
	Err      error
}

func (e *DetailError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("detail %s (%s): status %d: %v", e.ID, e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("detail %s (%s): %v", e.ID, e.URL, e.Err)
}

func (e *DetailError) Unwrap() error { return e.Err }

func (e *DetailError) Is(target error) bool { return target == ErrDetail }

// SinkError reports a failed append to an output stream.
type SinkError struct {
	Stream string
	ID     string
	Err    error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("append %s record for %s: %v", e.Stream, e.ID, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }

func (e *SinkError) Is(target error) bool { return target == ErrSink }
