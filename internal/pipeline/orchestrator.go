// Package pipeline runs scrape jobs for a queue of games over a fixed pool of
// browser sessions.
//
// Games are split into consecutive batches of pool size. Within a batch the
// game at position i runs on session i, all jobs start together and the batch
// settles only when every job has finished: a failing, hung or panicking job
// never cancels its siblings. Batches run strictly one after another. After a
// batch settles its outcomes are persisted and merged into the run Summary by
// a single aggregator.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/tbourn/go-ratings-pipeline/internal/domain"
	"github.com/tbourn/go-ratings-pipeline/internal/extract"
	"github.com/tbourn/go-ratings-pipeline/internal/observability"
	"github.com/tbourn/go-ratings-pipeline/internal/scrape"
)

// ErrLaunchFailed is returned when the session pool cannot be brought up.
var ErrLaunchFailed = errors.New("session launch failed")

// DefaultJobTimeout bounds a single job when Orchestrator.JobTimeout is unset.
const DefaultJobTimeout = 2 * time.Minute

var tracer = otel.Tracer("github.com/tbourn/go-ratings-pipeline/internal/pipeline")

// Session runs one job at a time. *scrape.Session implements it.
type Session interface {
	ID() int
	RunJob(ctx context.Context, title string) scrape.Outcome
	Close() error
}

// Launcher brings up a ready session for pool position id.
type Launcher interface {
	Launch(ctx context.Context, id int) (Session, error)
}

// LauncherFunc adapts a function to Launcher.
type LauncherFunc func(ctx context.Context, id int) (Session, error)

// Launch calls f.
func (f LauncherFunc) Launch(ctx context.Context, id int) (Session, error) { return f(ctx, id) }

// ChromeLauncher adapts a scrape.ChromeLauncher to Launcher.
func ChromeLauncher(l scrape.ChromeLauncher) Launcher {
	return LauncherFunc(func(ctx context.Context, id int) (Session, error) {
		s, err := l.Launch(ctx, id)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

// Store persists job outcomes.
type Store interface {
	SaveRating(ctx context.Context, game domain.Game, r extract.Rating) error
	SaveFailure(ctx context.Context, game domain.Game, message string) error
}

// Result is the settled outcome of one job.
type Result struct {
	Game    domain.Game
	Session int
	Batch   int
	Outcome scrape.Outcome
	// PersistErr is set when the outcome could not be stored.
	PersistErr error
}

// OK reports whether the job produced a rating and it was stored.
func (r Result) OK() bool { return r.Outcome.OK() && r.PersistErr == nil }

// Orchestrator owns the session pool for one run.
type Orchestrator struct {
	Launcher   Launcher
	Store      Store
	JobTimeout time.Duration

	// OnResult, if set, is called by the aggregator for every settled job.
	OnResult func(Result)
}

// Run processes games on a pool of poolSize sessions and returns the run
// summary. Cancelling ctx stops the run before the next batch; the summary so
// far is returned together with the context error.
func (o *Orchestrator) Run(ctx context.Context, games []domain.Game, poolSize int) (Summary, error) {
	sum := Summary{StartedAt: time.Now()}
	if poolSize < 1 || len(games) == 0 {
		sum.FinishedAt = sum.StartedAt
	}
	if poolSize < 1 {
		return sum, fmt.Errorf("pool size must be >= 1, got %d", poolSize)
	}
	if len(games) == 0 {
		log.Info().Msg("no pending games")
		return sum, nil
	}

	ctx, span := tracer.Start(ctx, "pipeline.Run")
	defer span.End()
	span.SetAttributes(attribute.Int("games", len(games)), attribute.Int("pool_size", poolSize))

	sessions, err := o.launch(ctx, min(poolSize, len(games)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "launch")
		sum.FinishedAt = time.Now()
		return sum, err
	}
	defer func() {
		closeAll(sessions)
		observability.SessionsOpened(-len(sessions))
	}()

	total := len(games)
	for start, batch := 0, 1; start < total; start, batch = start+len(sessions), batch+1 {
		if err := ctx.Err(); err != nil {
			log.Warn().Err(err).Int("remaining", total-start).Msg("run cancelled before next batch")
			sum.FinishedAt = time.Now()
			return sum, err
		}
		end := min(start+len(sessions), total)
		results := o.runBatch(ctx, sessions, games[start:end], batch)
		for i, r := range results {
			sum.add(r)
			logResult(start+i+1, total, r)
			if o.OnResult != nil {
				o.OnResult(r)
			}
		}
		sum.Batches++
		observability.ObserveBatch()
	}

	sum.FinishedAt = time.Now()
	span.SetAttributes(attribute.Int("succeeded", sum.Succeeded), attribute.Int("failed", sum.Failed))
	return sum, nil
}

// launch starts n sessions concurrently. If any launch fails, every session
// that did start is closed.
func (o *Orchestrator) launch(ctx context.Context, n int) ([]Session, error) {
	ctx, span := tracer.Start(ctx, "pipeline.launch")
	defer span.End()

	sessions := make([]Session, n)
	errs := make([]error, n)
	var wg conc.WaitGroup
	for i := 0; i < n; i++ {
		wg.Go(func() {
			var pc panics.Catcher
			pc.Try(func() { sessions[i], errs[i] = o.Launcher.Launch(ctx, i+1) })
			if r := pc.Recovered(); r != nil {
				errs[i] = r.AsError()
			}
		})
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		var started []Session
		for _, s := range sessions {
			if s != nil {
				started = append(started, s)
			}
		}
		closeAll(started)
		return nil, fmt.Errorf("%w: %w", ErrLaunchFailed, err)
	}
	observability.SessionsOpened(n)
	log.Info().Int("sessions", n).Msg("session pool ready")
	return sessions, nil
}

// runBatch runs games[i] on sessions[i] and waits for all of them.
func (o *Orchestrator) runBatch(ctx context.Context, sessions []Session, games []domain.Game, batch int) []Result {
	ctx, span := tracer.Start(ctx, "pipeline.batch")
	defer span.End()
	span.SetAttributes(attribute.Int("batch", batch), attribute.Int("jobs", len(games)))

	results := make([]Result, len(games))
	var wg conc.WaitGroup
	for i := range games {
		wg.Go(func() {
			results[i] = o.runJob(ctx, sessions[i], games[i], batch)
		})
	}
	wg.Wait()

	// Settled jobs are always recorded, even when the run is being cancelled.
	pctx := context.WithoutCancel(ctx)
	for i := range results {
		o.persist(pctx, &results[i])
	}
	return results
}

func (o *Orchestrator) runJob(ctx context.Context, s Session, game domain.Game, batch int) Result {
	timeout := o.JobTimeout
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}
	jctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	jctx, span := tracer.Start(jctx, "pipeline.job")
	defer span.End()
	span.SetAttributes(attribute.String("game.external_id", game.ExternalID), attribute.Int("session", s.ID()))

	res := Result{Game: game, Session: s.ID(), Batch: batch}
	start := time.Now()
	var pc panics.Catcher
	pc.Try(func() { res.Outcome = s.RunJob(jctx, game.Name) })
	if r := pc.Recovered(); r != nil {
		res.Outcome = scrape.Outcome{
			Title:    game.Name,
			Err:      fmt.Errorf("job panicked: %w", r.AsError()),
			Duration: time.Since(start),
		}
	}
	if res.Outcome.Err == nil && res.Outcome.Rating == nil {
		res.Outcome.Err = errors.New("job returned no rating")
	}
	if res.Outcome.Err != nil {
		span.RecordError(res.Outcome.Err)
		span.SetStatus(codes.Error, "job failed")
	}
	observability.ObserveJob(res.Outcome.OK(), res.Outcome.Duration, stageOf(res.Outcome.Err))
	return res
}

func (o *Orchestrator) persist(ctx context.Context, r *Result) {
	if r.Outcome.OK() {
		if err := o.Store.SaveRating(ctx, r.Game, *r.Outcome.Rating); err != nil {
			r.PersistErr = err
			observability.ObservePersistError("rating")
			log.Error().Err(err).Str("external_id", r.Game.ExternalID).Msg("store rating")
		}
		return
	}
	if err := o.Store.SaveFailure(ctx, r.Game, r.Outcome.Err.Error()); err != nil {
		r.PersistErr = err
		observability.ObservePersistError("failure")
		log.Error().Err(err).Str("external_id", r.Game.ExternalID).Msg("store failure")
	}
}

func closeAll(sessions []Session) {
	for _, s := range sessions {
		if err := s.Close(); err != nil {
			log.Warn().Err(err).Int("session", s.ID()).Msg("close session")
		}
	}
}

func stageOf(err error) string {
	var se *scrape.ScrapeError
	if errors.As(err, &se) {
		return se.Stage.String()
	}
	return ""
}
