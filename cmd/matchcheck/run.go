package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/matchcheck/internal/fixture"
	"github.com/kailas-cloud/matchcheck/internal/metrics"
	"github.com/kailas-cloud/matchcheck/internal/transport/rest"
)

func newRunCmd() *cobra.Command {
	var (
		viaURL string
		apiKey string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Set up the fixture, run every check, and tear it down",
		Long: `run executes the full fixture lifecycle against the configured backend.

With --via, the non-member check is repeated through a matchcheck server's
search API. The server must search the same backend (for example a shared
Redis deployment).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, env, err := loadConfig()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var remote fixture.Searcher
			if viaURL != "" {
				var opts []rest.ClientOption
				if apiKey != "" {
					opts = append(opts, rest.WithAPIKey(apiKey))
				}
				remote, err = rest.NewClient(viaURL, opts...)
				if err != nil {
					return fmt.Errorf("remote search client: %w", err)
				}
			}

			logger.Info("Starting fixture run",
				zap.String("env", env),
				zap.String("driver", cfg.Backend.Driver),
				zap.String("index", cfg.Fixture.Index),
				zap.Int("doc_count", cfg.Fixture.DocCount),
			)

			m, err := metrics.NewBackend(prometheus.NewRegistry())
			if err != nil {
				return err //nolint:wrapcheck // already contextualized
			}
			store, err := openStore(ctx, cfg.Backend, m, logger)
			if err != nil {
				return err
			}

			ctrl, err := fixture.New(store, fixture.Config{
				Index:     cfg.Fixture.Index,
				Type:      cfg.Fixture.Type,
				DocCount:  cfg.Fixture.DocCount,
				Timeout:   cfg.Fixture.Timeout(),
				NonMember: cfg.Fixture.NonMember,
			}, fixture.WithLogger(logger), fixture.WithOwnedBackend())
			if err != nil {
				store.Close()
				return err //nolint:wrapcheck // already contextualized
			}

			err = ctrl.Run(ctx, func(ctx context.Context, c *fixture.Controller) error {
				if err := c.VerifyAll(ctx); err != nil {
					return err //nolint:wrapcheck // already contextualized
				}
				if remote != nil {
					return c.VerifyMultiMatchVia(ctx, remote) //nolint:wrapcheck // already contextualized
				}
				return nil
			})
			if err != nil {
				var ae *fixture.AssertionError
				if errors.As(err, &ae) {
					logger.Error("Check failed",
						zap.String("check", ae.Check),
						zap.Int("expected", ae.Expected),
						zap.Int("actual", ae.Actual),
						zap.Strings("ids", ae.IDs),
					)
				}
				return fmt.Errorf("fixture run failed: %w", err)
			}

			logger.Info("All checks passed")
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
	cmd.Flags().StringVar(&viaURL, "via", "", "base URL of a matchcheck server to repeat the non-member check through")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "bearer token for --via")
	return cmd
}
