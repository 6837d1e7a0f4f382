package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/facegate/facegate/internal/config"
	"github.com/facegate/facegate/internal/store"
	"github.com/facegate/facegate/internal/store/postgres"
	"github.com/facegate/facegate/internal/store/sqlite"
)

// openStore opens the embedding store selected by STORE_DRIVER.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case "memory":
		return store.NewMemoryStore(), nil

	case "sqlite":
		s, err := sqlite.Open(ctx, cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return s, nil

	case "postgres":
		if cfg.Store.URL == "" {
			return nil, errors.New("DATABASE_URL environment variable is required for the postgres driver")
		}
		pool, err := postgres.NewPool(&cfg.Store)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		if err := pool.Migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		return postgres.NewIdentityRepository(pool), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
