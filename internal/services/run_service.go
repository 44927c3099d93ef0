package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-ratings-pipeline/internal/domain"
	"github.com/tbourn/go-ratings-pipeline/internal/observability"
	"github.com/tbourn/go-ratings-pipeline/internal/pipeline"
	"github.com/tbourn/go-ratings-pipeline/internal/repo"
)

// staleRunReason is stored on runs found in the running state at startup.
const staleRunReason = "process exited before the run finished"

// RunRequest describes a pipeline run.
type RunRequest struct {
	// PoolSize is the number of browser sessions; 0 selects the default.
	PoolSize int
	// Limit caps the number of pending games processed; 0 means all.
	Limit int
	// IdempotencyKey, if set, makes a retried request return the run it
	// originally started.
	IdempotencyKey string
}

// RunService starts pipeline runs and records them in scrape_runs. At most
// one run is active per process.
type RunService struct {
	DB       *gorm.DB
	Launcher pipeline.Launcher
	Store    pipeline.Store

	JobTimeout      time.Duration
	DefaultPoolSize int
	MaxPoolSize     int // 0 means no cap
	IdempotencyTTL  time.Duration

	mu     sync.Mutex
	active *activeRun
	closed bool
}

type activeRun struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRunService wires a RunService that stores results through a
// ResultStore on db.
func NewRunService(db *gorm.DB, l pipeline.Launcher, poolSize int, jobTimeout, idemTTL time.Duration) *RunService {
	return &RunService{
		DB:              db,
		Launcher:        l,
		Store:           NewResultStore(db),
		JobTimeout:      jobTimeout,
		DefaultPoolSize: poolSize,
		IdempotencyTTL:  idemTTL,
	}
}

// Start begins a run in the background and returns it in the running state.
// A request carrying a known idempotency key returns the original run and
// replayed=true instead.
func (s *RunService) Start(ctx context.Context, req RunRequest) (*domain.Run, bool, error) {
	key := strings.TrimSpace(req.IdempotencyKey)
	if key != "" {
		rec, err := repo.GetIdempotency(ctx, s.DB, key, time.Now().UTC())
		switch {
		case err == nil:
			run, err := s.Get(ctx, rec.RunID)
			return run, err == nil, err
		case !errors.Is(err, repo.ErrNotFound):
			return nil, false, err
		}
	}

	run, games, a, err := s.begin(context.WithoutCancel(ctx), req)
	if err != nil {
		return nil, false, err
	}
	if key != "" {
		if _, err := repo.CreateIdempotency(ctx, s.DB, key, run.ID, s.IdempotencyTTL); err != nil {
			log.Warn().Err(err).Str("run_id", run.ID).Msg("store idempotency key")
		}
	}

	snapshot := *run
	go func() {
		_, _ = s.execute(run, games, a)
	}()
	return &snapshot, false, nil
}

// RunNow executes a run in the calling goroutine and returns the finished
// run with its summary. Cancelling ctx stops the run before the next batch.
func (s *RunService) RunNow(ctx context.Context, req RunRequest) (*domain.Run, pipeline.Summary, error) {
	run, games, a, err := s.begin(ctx, req)
	if err != nil {
		return nil, pipeline.Summary{}, err
	}
	sum, err := s.execute(run, games, a)
	return run, sum, err
}

// begin validates req, claims the active slot and records the run.
func (s *RunService) begin(parent context.Context, req RunRequest) (*domain.Run, []domain.Game, *activeRun, error) {
	pool := req.PoolSize
	if pool == 0 {
		pool = s.DefaultPoolSize
	}
	if pool < 1 || (s.MaxPoolSize > 0 && pool > s.MaxPoolSize) {
		return nil, nil, nil, ErrInvalidPoolSize
	}
	if req.Limit < 0 {
		return nil, nil, nil, ErrInvalidLimit
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, nil, nil, ErrShuttingDown
	}
	if s.active != nil {
		return nil, nil, nil, ErrRunInProgress
	}

	games, err := repo.PendingGames(parent, s.DB, req.Limit)
	if err != nil {
		return nil, nil, nil, err
	}
	run, err := repo.CreateRun(parent, s.DB, pool, req.Limit)
	if err != nil {
		return nil, nil, nil, err
	}

	ctx, cancel := context.WithCancel(parent)
	a := &activeRun{id: run.ID, ctx: ctx, cancel: cancel, done: make(chan struct{})}
	s.active = a
	log.Info().Str("run_id", run.ID).Int("games", len(games)).Int("pool_size", pool).Msg("run started")
	return run, games, a, nil
}

// execute drives the orchestrator for run and stores the final state.
func (s *RunService) execute(run *domain.Run, games []domain.Game, a *activeRun) (pipeline.Summary, error) {
	defer s.release(a)

	ctx := a.ctx
	store := context.WithoutCancel(ctx)
	var processed, succeeded, failed int
	orch := &pipeline.Orchestrator{
		Launcher:   s.Launcher,
		Store:      s.Store,
		JobTimeout: s.JobTimeout,
		OnResult: func(r pipeline.Result) {
			processed++
			if r.OK() {
				succeeded++
			} else {
				failed++
			}
			if err := repo.UpdateRunProgress(store, s.DB, run.ID, processed, succeeded, failed); err != nil {
				log.Warn().Err(err).Str("run_id", run.ID).Msg("update run progress")
			}
		},
	}

	sum, err := orch.Run(ctx, games, run.PoolSize)

	run.Processed = sum.Processed
	run.Succeeded = sum.Succeeded
	run.Failed = sum.Failed
	run.Batches = sum.Batches
	run.FailedTitles = append([]string{}, sum.FailedTitles...)
	switch {
	case err == nil:
		run.Status = domain.RunCompleted
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		run.Status = domain.RunAborted
		run.Error = err.Error()
	default:
		run.Status = domain.RunFailed
		run.Error = err.Error()
	}
	if !sum.FinishedAt.IsZero() {
		fin := sum.FinishedAt.UTC()
		run.FinishedAt = &fin
	}
	if ferr := repo.FinishRun(store, s.DB, run); ferr != nil {
		log.Error().Err(ferr).Str("run_id", run.ID).Msg("finish run")
	}
	observability.ObserveRun(string(run.Status))

	log.Info().
		Str("run_id", run.ID).
		Str("status", string(run.Status)).
		Int("processed", run.Processed).
		Int("succeeded", run.Succeeded).
		Int("failed", run.Failed).
		Dur("duration", sum.Duration()).
		Msg("run finished")
	return sum, err
}

func (s *RunService) release(a *activeRun) {
	a.cancel()
	s.mu.Lock()
	if s.active == a {
		s.active = nil
	}
	s.mu.Unlock()
	close(a.done)
}

// Active returns the id of the run in progress, if any.
func (s *RunService) Active() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return "", false
	}
	return s.active.id, true
}

// Wait blocks until no run is active or ctx is done.
func (s *RunService) Wait(ctx context.Context) error {
	s.mu.Lock()
	a := s.active
	s.mu.Unlock()
	if a == nil {
		return nil
	}
	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown refuses new runs, cancels the active one and waits for it to
// store its final state.
func (s *RunService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	a := s.active
	s.mu.Unlock()
	if a == nil {
		return nil
	}
	a.cancel()
	return s.Wait(ctx)
}

// Get returns the run with id.
func (s *RunService) Get(ctx context.Context, id string) (*domain.Run, error) {
	run, err := repo.GetRun(ctx, s.DB, strings.TrimSpace(id))
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrRunNotFound
	}
	return run, err
}

// ListPage returns a page of runs, newest first, and the total count.
func (s *RunService) ListPage(ctx context.Context, page, pageSize int) ([]domain.Run, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	pageSize = min(pageSize, 100)
	total, err := repo.CountRuns(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Run{}, 0, nil
	}
	items, err := repo.ListRuns(ctx, s.DB, (page-1)*pageSize, pageSize)
	return items, total, err
}

// RecoverStale marks runs left running by a previous process as aborted.
// Call it once at startup, before any run is started.
func (s *RunService) RecoverStale(ctx context.Context) (int64, error) {
	n, err := repo.AbortStaleRuns(ctx, s.DB, staleRunReason)
	if err == nil && n > 0 {
		log.Warn().Int64("runs", n).Msg("aborted stale runs")
	}
	return n, err
}
