package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/tbourn/go-ratings-pipeline/internal/browser"
	"github.com/tbourn/go-ratings-pipeline/internal/config"
	"github.com/tbourn/go-ratings-pipeline/internal/extract"
	"github.com/tbourn/go-ratings-pipeline/internal/logging"
	"github.com/tbourn/go-ratings-pipeline/internal/match"
	"github.com/tbourn/go-ratings-pipeline/internal/observability"
	"github.com/tbourn/go-ratings-pipeline/internal/pipeline"
	"github.com/tbourn/go-ratings-pipeline/internal/repo"
	"github.com/tbourn/go-ratings-pipeline/internal/scrape"
	"github.com/tbourn/go-ratings-pipeline/internal/services"
)

// app holds what every command needs once configuration is loaded.
type app struct {
	cfg config.Config
	db  *gorm.DB

	logFile       io.Closer
	shutdownTrace observability.ShutdownFunc
}

// bootstrap runs setup and opens the database. migrate controls whether the
// schema is brought up to date.
func bootstrap(ctx context.Context, version string, migrate bool) (*app, error) {
	a, err := setup(ctx, version)
	if err != nil {
		return nil, err
	}
	db, err := repo.OpenDB(a.cfg.DB)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("open db: %w", err)
	}
	a.db = db
	if migrate {
		if err := repo.AutoMigrate(db); err != nil {
			a.close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return a, nil
}

// setup loads config and installs logging and tracing.
func setup(ctx context.Context, version string) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	a := &app{cfg: cfg, shutdownTrace: func(context.Context) error { return nil }}
	a.logFile = logging.Setup(logging.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
		File:   cfg.LogFile,
	})

	shutdown, err := observability.SetupTracing(ctx, cfg.OTEL, version)
	if err != nil {
		// Tracing is optional; keep going without it.
		log.Warn().Err(err).Msg("tracing disabled")
	} else {
		a.shutdownTrace = shutdown
	}
	return a, nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.shutdownTrace(ctx); err != nil {
		log.Warn().Err(err).Msg("tracer shutdown")
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}

// runService wires the browser-backed run service and marks runs left over
// by a previous process as aborted.
func (a *app) runService(ctx context.Context) (*services.RunService, error) {
	cl, err := chromeLauncher(a.cfg)
	if err != nil {
		return nil, err
	}
	s := services.NewRunService(a.db, pipeline.ChromeLauncher(cl), a.cfg.Scrape.PoolSize,
		a.cfg.Scrape.JobTimeout, a.cfg.IdempotencyTTL)
	s.MaxPoolSize = a.cfg.Scrape.MaxPoolSize
	if _, err := s.RecoverStale(ctx); err != nil {
		return nil, fmt.Errorf("recover stale runs: %w", err)
	}
	return s, nil
}

// chromeLauncher maps configuration onto browser and session settings. All
// sessions share one search limiter when SEARCH_RPS is set.
func chromeLauncher(cfg config.Config) (scrape.ChromeLauncher, error) {
	layout, err := extract.Lookup(cfg.Scrape.Layout)
	if err != nil {
		return scrape.ChromeLauncher{}, err
	}
	strategy, err := match.ParseStrategy(cfg.Scrape.Strategy)
	if err != nil {
		return scrape.ChromeLauncher{}, err
	}
	var limiter *rate.Limiter
	if cfg.Scrape.SearchRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Scrape.SearchRPS), 1)
	}
	return scrape.ChromeLauncher{
		Browser: browser.Options{
			Headless:      cfg.Browser.Headless,
			WindowWidth:   cfg.Browser.WindowWidth,
			WindowHeight:  cfg.Browser.WindowHeight,
			UserAgent:     cfg.Browser.UserAgent,
			ExecPath:      cfg.Browser.ExecPath,
			LaunchTimeout: cfg.Scrape.LaunchTimeout,
		},
		Session: scrape.Config{
			BaseURL:           cfg.Scrape.BaseURL,
			Layout:            layout,
			Strategy:          strategy,
			ElementTimeout:    cfg.Scrape.ElementTimeout,
			NavigationTimeout: cfg.Scrape.NavigationTimeout,
			RecoveryTimeout:   cfg.Scrape.RecoveryTimeout,
			OpenTimeout:       cfg.Scrape.LaunchTimeout,
			WaitForDetail:     cfg.Scrape.WaitForDetail,
			Limiter:           limiter,
			OnTransition: func(_ int, _, to scrape.State) {
				observability.ObserveTransition(to.String())
			},
		},
	}, nil
}
