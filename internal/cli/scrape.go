package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-ratings-pipeline/internal/domain"
	"github.com/tbourn/go-ratings-pipeline/internal/services"
)

// errRunNotCompleted makes the process exit non-zero when a run ends failed
// or aborted. The report is still printed.
var errRunNotCompleted = errors.New("run did not complete")

func newScrapeCmd(version string) *cobra.Command {
	var poolSize, limit int
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Run the pipeline once over all pending games and print a report",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx, version, true)
			if err != nil {
				return err
			}
			defer a.close()

			runs, err := a.runService(ctx)
			if err != nil {
				return err
			}
			return runOnce(ctx, cmd, runs, services.RunRequest{PoolSize: poolSize, Limit: limit})
		},
	}
	cmd.Flags().IntVar(&poolSize, "pool-size", 0, "concurrent browser sessions (0 = POOL_SIZE)")
	cmd.Flags().IntVar(&limit, "limit", 0, "process at most this many pending games (0 = all)")
	return cmd
}

// runOnce executes req synchronously and writes the summary report to the
// command's output.
func runOnce(ctx context.Context, cmd *cobra.Command, runs *services.RunService, req services.RunRequest) error {
	run, sum, err := runs.RunNow(ctx, req)
	if run == nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprint(out, sum.Report())
	fmt.Fprintf(out, "run %s: %s\n", run.ID, run.Status)
	if run.Status != domain.RunCompleted {
		return fmt.Errorf("%w: %s", errRunNotCompleted, run.Status)
	}
	return nil
}
