package store

import (
	"context"
	"fmt"
	"log/slog"

	"reftourney/internal/config"
	"reftourney/internal/db"
	"reftourney/internal/tournament"
)

// Open builds the store selected by cfg.Driver. The returned func releases it.
func Open(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (tournament.Store, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Driver {
	case "postgres":
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("store opened", "driver", cfg.Driver)
		return NewPostgres(pool), pool.Close, nil
	case "bolt":
		b, err := OpenBolt(cfg.BoltPath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("store opened", "driver", cfg.Driver, "path", cfg.BoltPath)
		return b, func() {
			if err := b.Close(); err != nil {
				logger.Error("close bolt store", "err", err)
			}
		}, nil
	case "memory":
		logger.Warn("using in-memory store; state is lost on exit")
		return NewMemory(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
