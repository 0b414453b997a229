package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"lakemerge/internal/api"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the control API and job scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, cfg, logger, cleanup, err := bootstrap()
			if err != nil {
				return err
			}
			defer cleanup()

			handler := api.NewHandler(a.Runner, a.RunReader, a.Jobs, logger.With("component", "api"))
			router := api.NewRouter(handler, api.RouterConfig{
				RateLimitRPS:       cfg.RateLimitRPS,
				RateLimitBurst:     cfg.RateLimitBurst,
				CORSAllowedOrigins: cfg.CORSAllowedOrigins,
			})
			server := &http.Server{
				Addr:              cfg.ListenAddr,
				Handler:           router,
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a.Scheduler.Start()
			defer a.Scheduler.Stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("control API listening", "addr", cfg.ListenAddr)
				if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
}
