package scrape

import (
	"errors"
	"fmt"

	"github.com/tbourn/go-ratings-pipeline/internal/extract"
)

var (
	// ErrSelectorTimeout means an expected element never appeared within its
	// wait budget (slow site or no search match).
	ErrSelectorTimeout = errors.New("selector timeout")

	// ErrExtractionFailed means the detail page loaded without usable score
	// elements.
	ErrExtractionFailed = extract.ErrExtractionFailed

	// ErrRecoveryFailed means the session could not be returned to the search
	// page. It is logged, never reported as a job outcome.
	ErrRecoveryFailed = errors.New("recovery failed")

	// ErrJobTimeout means the whole job ran past its deadline.
	ErrJobTimeout = errors.New("job deadline exceeded")

	// ErrEmptyQuery means the title normalized to nothing searchable.
	ErrEmptyQuery = errors.New("empty search query")
)

// ScrapeError wraps the cause of a failed job with the title and the state
// the session was in when it failed.
type ScrapeError struct {
	Title string
	Stage State
	Err   error
}

func (e *ScrapeError) Error() string {
	return fmt.Sprintf("scrape %q failed while %s: %v", e.Title, e.Stage, e.Err)
}

func (e *ScrapeError) Unwrap() error { return e.Err }
