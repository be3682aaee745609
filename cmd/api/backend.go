package main

import (
	"context"

	"github.com/georgemunganga/shopu-backend/internal/config"
	"github.com/georgemunganga/shopu-backend/internal/modules/catalog"
	"github.com/georgemunganga/shopu-backend/internal/modules/order"
	"github.com/georgemunganga/shopu-backend/internal/modules/user"
	"github.com/georgemunganga/shopu-backend/internal/platform/database"
	"github.com/georgemunganga/shopu-backend/internal/platform/docstore"
	"go.uber.org/zap"
)

// backend bundles the repositories for the configured store driver.
type backend struct {
	users    user.Repository
	products catalog.Repository
	orders   order.Repository
	closers  []func() error
}

func openBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*backend, error) {
	if cfg.StoreDriver != config.DriverPostgres {
		store := docstore.New()
		return &backend{
			users:    user.NewMemoryRepository(store),
			products: catalog.NewMemoryRepository(store),
			orders:   order.NewMemoryRepository(store),
		}, nil
	}

	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	notifier, err := database.NewNotifier(cfg.DatabaseURL, cfg.ResyncInterval, logger.Named("notifier"))
	if err != nil {
		db.Close()
		return nil, err
	}
	return &backend{
		users:    user.NewPostgresRepository(db, notifier, logger.Named("user")),
		products: catalog.NewPostgresRepository(db, notifier, logger.Named("catalog")),
		orders:   order.NewPostgresRepository(db, notifier, logger.Named("order")),
		closers:  []func() error{notifier.Close, db.Close},
	}, nil
}

func (b *backend) Close() {
	for _, c := range b.closers {
		if err := c(); err != nil {
			zap.L().Warn("close backend", zap.Error(err))
		}
	}
}
