// Package scrape drives one browser page through the search → select →
// extract flow for a single game title.
//
// A Session owns exactly one page and runs at most one job at a time. Every
// job, successful or not, ends with a recovery step that navigates back to the
// site's home page and waits for the search input, so the next job always
// starts from a known state. Recovery failures are logged and never change the
// outcome of the job that triggered them.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/tbourn/go-ratings-pipeline/internal/extract"
	"github.com/tbourn/go-ratings-pipeline/internal/match"
	"github.com/tbourn/go-ratings-pipeline/internal/normalize"
)

// Page is the browser surface a Session needs. *browser.Tab implements it.
type Page interface {
	extract.Page
	Navigate(ctx context.Context, url string) error
	ClearAndType(ctx context.Context, selector, text string) error
	Texts(ctx context.Context, selector string) ([]string, error)
	ClickNth(ctx context.Context, selector string, n int) error
	WaitURLContains(ctx context.Context, substr string) error
	Close() error
}

// Config controls a Session's behaviour. Zero durations fall back to the
// defaults below.
type Config struct {
	ID       int
	BaseURL  string
	Layout   extract.Layout
	Strategy match.Strategy

	ElementTimeout time.Duration
	// NavigationTimeout bounds a single page load inside recovery.
	NavigationTimeout time.Duration
	// RecoveryTimeout bounds the whole recovery step.
	RecoveryTimeout time.Duration
	// OpenTimeout bounds the first navigation after launch.
	OpenTimeout time.Duration

	// WaitForDetail makes the session wait for the detail URL before
	// extracting. A missed wait is not an error.
	WaitForDetail bool

	// Limiter, when set, throttles searches. It may be shared by all sessions.
	Limiter *rate.Limiter

	// OnTransition is called on every state change.
	OnTransition func(id int, from, to State)
}

const (
	DefaultElementTimeout    = 10 * time.Second
	DefaultNavigationTimeout = 30 * time.Second
	DefaultRecoveryTimeout   = 30 * time.Second
	DefaultOpenTimeout       = 90 * time.Second
)

func (c Config) withDefaults() Config {
	if c.ElementTimeout <= 0 {
		c.ElementTimeout = DefaultElementTimeout
	}
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = DefaultNavigationTimeout
	}
	if c.RecoveryTimeout <= 0 {
		c.RecoveryTimeout = DefaultRecoveryTimeout
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = DefaultOpenTimeout
	}
	if c.Strategy == "" {
		c.Strategy = match.First
	}
	return c
}

// Outcome is the result of one job. Exactly one of Rating and Err is set.
type Outcome struct {
	Title    string
	Query    string
	Rating   *extract.Rating
	Err      error
	Duration time.Duration
}

// OK reports whether the job produced a rating.
func (o Outcome) OK() bool { return o.Err == nil && o.Rating != nil }

// Session is one isolated page plus its job state machine.
type Session struct {
	cfg       Config
	page      Page
	extractor extract.Extractor
	logger    zerolog.Logger

	mu    sync.Mutex // serializes jobs
	state atomic.Int32
}

// Open wraps page in a Session and performs the initial navigation to the
// search page. The page is not closed on failure.
func Open(ctx context.Context, page Page, cfg Config) (*Session, error) {
	cfg = cfg.withDefaults()
	s := &Session{
		cfg:       cfg,
		page:      page,
		extractor: extract.Extractor{Layout: cfg.Layout, Wait: cfg.ElementTimeout},
		logger:    log.With().Int("session", cfg.ID).Logger(),
	}
	if err := s.home(ctx, cfg.OpenTimeout, cfg.OpenTimeout); err != nil {
		return nil, fmt.Errorf("open session %d: %w", cfg.ID, err)
	}
	s.logger.Debug().Str("url", cfg.BaseURL).Msg("session ready")
	return s, nil
}

// ID returns the session's position in the pool.
func (s *Session) ID() int { return s.cfg.ID }

// State returns the current state. It is safe to call from any goroutine.
func (s *Session) State() State { return State(s.state.Load()) }

// Close releases the underlying page.
func (s *Session) Close() error { return s.page.Close() }

// RunJob searches for title, opens the chosen suggestion and extracts its
// rating. The session is always recovered before RunJob returns.
func (s *Session) RunJob(ctx context.Context, title string) (out Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	out = Outcome{Title: title, Query: normalize.Title(title)}
	defer func() { out.Duration = time.Since(start) }()
	defer s.recoverPage(ctx)

	rating, err := s.scrape(ctx, title, out.Query)
	if err != nil {
		s.transition(Failed)
		out.Err = err
		s.logger.Warn().Err(err).Str("title", title).Msg("job failed")
		return out
	}
	s.transition(Succeeded)
	out.Rating = &rating
	s.logger.Debug().Str("title", title).Str("url", rating.URL).Msg("job succeeded")
	return out
}

func (s *Session) scrape(ctx context.Context, title, query string) (extract.Rating, error) {
	l := s.cfg.Layout
	fail := func(stage State, err error) error {
		return &ScrapeError{Title: title, Stage: stage, Err: s.classify(ctx, err)}
	}

	s.transition(Searching)
	if query == "" {
		return extract.Rating{}, fail(Searching, ErrEmptyQuery)
	}
	if s.cfg.Limiter != nil {
		if err := s.cfg.Limiter.Wait(ctx); err != nil {
			return extract.Rating{}, fail(Searching, err)
		}
	}
	if err := s.bounded(ctx, func(c context.Context) error {
		return s.page.ClearAndType(c, l.SearchInput, query)
	}); err != nil {
		return extract.Rating{}, fail(Searching, fmt.Errorf("%s: %w", l.SearchInput, err))
	}

	s.transition(AwaitingResults)
	if err := s.bounded(ctx, func(c context.Context) error {
		return s.page.WaitVisible(c, l.Typeahead)
	}); err != nil {
		return extract.Rating{}, fail(AwaitingResults, fmt.Errorf("%s: %w", l.Typeahead, err))
	}

	s.transition(Selecting)
	idx := 0
	if s.cfg.Strategy == match.Best {
		var texts []string
		err := s.bounded(ctx, func(c context.Context) (err error) {
			texts, err = s.page.Texts(c, l.Suggestion)
			return err
		})
		if err != nil {
			s.logger.Debug().Err(err).Msg("reading suggestions failed, using first")
		} else if idx = match.Pick(match.Best, query, texts); idx < 0 {
			idx = 0
		}
	}
	if err := s.bounded(ctx, func(c context.Context) error {
		return s.page.ClickNth(c, l.Suggestion, idx)
	}); err != nil {
		return extract.Rating{}, fail(Selecting, fmt.Errorf("%s[%d]: %w", l.Suggestion, idx, err))
	}

	s.transition(AwaitingDetail)
	if s.cfg.WaitForDetail && l.DetailPath != "" {
		if err := s.bounded(ctx, func(c context.Context) error {
			return s.page.WaitURLContains(c, l.DetailPath)
		}); err != nil && ctx.Err() == nil {
			s.logger.Debug().Err(err).Msg("detail url not reached, extracting anyway")
		}
	}

	s.transition(Extracting)
	rating, err := s.extractor.Extract(ctx, s.page)
	if err != nil {
		return extract.Rating{}, fail(Extracting, err)
	}
	return rating, nil
}

// bounded runs fn under the per-element timeout.
func (s *Session) bounded(ctx context.Context, fn func(context.Context) error) error {
	wctx, cancel := context.WithTimeout(ctx, s.cfg.ElementTimeout)
	defer cancel()
	return fn(wctx)
}

// classify tags deadline errors: the job's own deadline wins over a single
// element wait.
func (s *Session) classify(ctx context.Context, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		if errors.Is(err, ErrJobTimeout) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrJobTimeout, err)
	case errors.Is(err, ErrExtractionFailed), errors.Is(err, ErrSelectorTimeout):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrSelectorTimeout, err)
	}
	return err
}

// recoverPage returns the page to the search page. It detaches from the job's
// cancellation so a timed-out job still leaves a usable session.
func (s *Session) recoverPage(ctx context.Context) {
	s.transition(Recovering)
	defer s.transition(Ready)
	if err := s.home(context.WithoutCancel(ctx), s.cfg.RecoveryTimeout, s.cfg.NavigationTimeout); err != nil {
		s.logger.Error().Err(err).Msg("session recovery failed")
	}
}

// home navigates to the base URL and waits for the search input. timeout
// bounds the whole step, nav only the page load.
func (s *Session) home(ctx context.Context, timeout, nav time.Duration) error {
	hctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.navigate(hctx, nav); err != nil {
		return fmt.Errorf("%w: navigate %s: %w", ErrRecoveryFailed, s.cfg.BaseURL, err)
	}
	if err := s.page.WaitVisible(hctx, s.cfg.Layout.SearchInput); err != nil {
		return fmt.Errorf("%w: wait %s: %w", ErrRecoveryFailed, s.cfg.Layout.SearchInput, err)
	}
	return nil
}

func (s *Session) navigate(ctx context.Context, timeout time.Duration) error {
	nctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.page.Navigate(nctx, s.cfg.BaseURL)
}

func (s *Session) transition(to State) {
	from := State(s.state.Swap(int32(to)))
	s.logger.Debug().Stringer("from", from).Stringer("to", to).Msg("state")
	if s.cfg.OnTransition != nil {
		s.cfg.OnTransition(s.cfg.ID, from, to)
	}
}
