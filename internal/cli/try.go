package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-ratings-pipeline/internal/config"
	"github.com/tbourn/go-ratings-pipeline/internal/domain"
	"github.com/tbourn/go-ratings-pipeline/internal/extract"
	"github.com/tbourn/go-ratings-pipeline/internal/pipeline"
)

// errTryFailed makes `try` exit non-zero when any title could not be rated.
var errTryFailed = errors.New("some titles failed")

func newTryCmd(version string) *cobra.Command {
	var poolSize int
	cmd := &cobra.Command{
		Use:   "try <title>...",
		Short: "Scrape the given titles and print each rating without touching the database",
		Long: "try runs the same sessions and batching as scrape against an ad-hoc list of " +
			"titles. Nothing is read from or written to the database, so it is safe for " +
			"checking SITE_LAYOUT or SELECT_STRATEGY before a real run.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := setup(ctx, version)
			if err != nil {
				return err
			}
			defer a.close()

			pool, err := tryPoolSize(a.cfg, poolSize)
			if err != nil {
				return err
			}
			cl, err := chromeLauncher(a.cfg)
			if err != nil {
				return err
			}
			return tryTitles(ctx, cmd.OutOrStdout(), pipeline.ChromeLauncher(cl), pool, a.cfg.Scrape.JobTimeout, args)
		},
	}
	cmd.Flags().IntVar(&poolSize, "pool-size", 0, "concurrent browser sessions (0 = POOL_SIZE)")
	return cmd
}

// tryPoolSize resolves the --pool-size flag against configuration.
func tryPoolSize(cfg config.Config, flag int) (int, error) {
	if flag == 0 {
		return cfg.Scrape.PoolSize, nil
	}
	if flag < 1 || flag > cfg.Scrape.MaxPoolSize {
		return 0, fmt.Errorf("--pool-size must be between 1 and %d (MAX_POOL_SIZE)", cfg.Scrape.MaxPoolSize)
	}
	return flag, nil
}

// tryTitles scrapes titles on a pool of sessions and writes one line per
// title plus the run summary to out.
func tryTitles(ctx context.Context, out io.Writer, l pipeline.Launcher, poolSize int, jobTimeout time.Duration, titles []string) error {
	games := make([]domain.Game, len(titles))
	for i, t := range titles {
		games[i] = domain.Game{ID: uint(i + 1), Name: t, ExternalID: fmt.Sprintf("try-%d", i+1)}
	}

	n := 0
	orch := &pipeline.Orchestrator{
		Launcher:   l,
		Store:      discardStore{},
		JobTimeout: jobTimeout,
		OnResult: func(r pipeline.Result) {
			n++
			fmt.Fprintf(out, "[%d/%d] %s\n", n, len(games), resultLine(r))
		},
	}
	sum, err := orch.Run(ctx, games, poolSize)
	fmt.Fprint(out, sum.Report())
	if err != nil {
		return err
	}
	if sum.Failed > 0 {
		return fmt.Errorf("%w: %d of %d", errTryFailed, sum.Failed, sum.Processed)
	}
	return nil
}

func resultLine(r pipeline.Result) string {
	if !r.OK() {
		return fmt.Sprintf("%s: FAILED: %v", r.Game.Name, r.Outcome.Err)
	}
	rt := r.Outcome.Rating
	return fmt.Sprintf("%s: tier=%s top_critic=%s recommend=%s player=%s url=%s",
		r.Game.Name, orDash(rt.Tier), intOrDash(rt.TopCriticAverage, ""), intOrDash(rt.CriticsRecommend, "%"),
		orDash(rt.PlayerRating), rt.URL)
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func intOrDash(n *int, suffix string) string {
	if n == nil {
		return "-"
	}
	return fmt.Sprintf("%d%s", *n, suffix)
}

// discardStore satisfies pipeline.Store without persisting anything.
type discardStore struct{}

func (discardStore) SaveRating(context.Context, domain.Game, extract.Rating) error { return nil }
func (discardStore) SaveFailure(context.Context, domain.Game, string) error { return nil }
