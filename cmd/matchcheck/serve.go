package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/matchcheck/internal/metrics"
	chiTransport "github.com/kailas-cloud/matchcheck/internal/transport/chi"
	healthuc "github.com/kailas-cloud/matchcheck/internal/usecase/health"
	"github.com/kailas-cloud/matchcheck/internal/version"
)

func newServeCmd() *cobra.Command {
	var watchIndex bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the search API over the configured backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, env, err := loadConfig()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			logger.Info("Starting matchcheck API server",
				zap.String("version", version.Version),
				zap.String("commit", version.Commit),
				zap.String("env", env),
				zap.Int("http_port", cfg.HTTP.Port),
				zap.String("driver", cfg.Backend.Driver),
			)

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			if err := metrics.RegisterHTTPMetrics(reg); err != nil {
				return err //nolint:wrapcheck // already contextualized
			}
			m, err := metrics.NewBackend(reg)
			if err != nil {
				return err //nolint:wrapcheck // already contextualized
			}

			store, err := openStore(cmd.Context(), cfg.Backend, m, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			healthSvc := healthuc.New(store, nil, "")
			if watchIndex {
				healthSvc = healthuc.New(store, store, cfg.Fixture.Index)
			}
			server := chiTransport.NewServer(store, healthSvc, reg, logger)

			addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
			srv := &http.Server{
				Addr:         addr,
				Handler:      chiTransport.NewRouter(server, cfg.Auth.APIKeys),
				ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
				WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Starting HTTP server", zap.String("addr", addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("http server: %w", err)
				}
			case <-ctx.Done():
				logger.Info("Received shutdown signal")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Error during shutdown", zap.Error(err))
			}

			logger.Info("Server stopped gracefully")
			return nil
		},
	}
	cmd.Flags().BoolVar(&watchIndex, "watch-index", false, "report degraded health while the fixture index is absent")
	return cmd
}
