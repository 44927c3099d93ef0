package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	httpapi "github.com/tbourn/go-ratings-pipeline/internal/http"
)

// shutdownGrace bounds how long serve waits for requests and the active run
// to finish after a signal.
const shutdownGrace = 30 * time.Second

func newServeCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API; runs are started with POST /runs",
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

			gin.SetMode(a.cfg.GinMode)
			r := gin.New()
			httpapi.RegisterRoutes(r, a.db, runs, a.cfg)

			srv := &http.Server{
				Addr:              net.JoinHostPort("", a.cfg.Port),
				Handler:           r,
				ReadTimeout:       a.cfg.ReadTimeout,
				ReadHeaderTimeout: a.cfg.ReadHeaderTimeout,
				WriteTimeout:      a.cfg.WriteTimeout,
				IdleTimeout:       a.cfg.IdleTimeout,
				MaxHeaderBytes:    a.cfg.MaxHeaderBytes,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("addr", srv.Addr).Str("version", version).Msg("http server listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return err
				}
			case <-ctx.Done():
				log.Info().Msg("shutting down")
			}

			sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				log.Error().Err(err).Msg("http shutdown")
			}
			if err := runs.Shutdown(sctx); err != nil {
				log.Error().Err(err).Msg("run shutdown")
			}
			return nil
		},
	}
}
