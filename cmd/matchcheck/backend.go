package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/matchcheck/internal/config"
	"github.com/kailas-cloud/matchcheck/internal/db"
	dbBleve "github.com/kailas-cloud/matchcheck/internal/db/bleve"
	dbRedis "github.com/kailas-cloud/matchcheck/internal/db/redis"
	"github.com/kailas-cloud/matchcheck/internal/metrics"
)

// openStore creates the configured backend, waits for it, and wraps it with
// metrics and logging.
func openStore(ctx context.Context, cfg config.BackendConfig, m *metrics.Backend, logger *zap.Logger) (db.Store, error) {
	var (
		store db.Store
		err   error
	)
	switch cfg.Driver {
	case config.DriverBleve:
		store, err = dbBleve.NewStore(dbBleve.Config{Path: cfg.BlevePath})
	case config.DriverRedis:
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	default:
		return nil, fmt.Errorf("unknown backend driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s store: %w", cfg.Driver, err)
	}

	if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("backend not ready: %w", err)
	}
	logger.Info("Connected to backend",
		zap.String("driver", cfg.Driver),
		zap.Strings("addrs", cfg.Addrs),
	)

	return db.NewInstrumented(store, cfg.Driver, m, logger), nil
}
