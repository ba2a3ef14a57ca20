package storage

import (
	"context"
	"fmt"

	"github.com/Varun5711/shortbox/internal/config"
	"github.com/Varun5711/shortbox/internal/database"
	"github.com/Varun5711/shortbox/internal/logger"
)

// Open builds the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (Store, error) {
	switch cfg.Driver {
	case "postgres":
		if cfg.AutoMigrate {
			version, err := database.Migrate(cfg.PrimaryDSN)
			if err != nil {
				return nil, err
			}
			log.Info("Postgres schema at version %d", version)
		}

		dbManager, err := database.NewDBManager(ctx, database.Config{
			PrimaryDSN:      cfg.PrimaryDSN,
			ReplicaDSNs:     cfg.ReplicaDSNs,
			MaxConns:        cfg.MaxConns,
			MinConns:        cfg.MinConns,
			MaxConnLifetime: cfg.MaxConnLifetime,
			MaxConnIdleTime: cfg.MaxConnIdleTime,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		log.Info("Connected to Postgres with %d replica(s)", len(cfg.ReplicaDSNs))
		return NewPostgresStorage(dbManager), nil

	case "mysql":
		store, err := NewMySQLStorage(cfg.MySQLDSN, log, cfg.AutoMigrate)
		if err != nil {
			return nil, err
		}
		log.Info("Connected to MySQL")
		return store, nil

	case "sqlite":
		store, err := NewSQLiteStorage(ctx, cfg.SQLiteDSN)
		if err != nil {
			return nil, err
		}
		log.Info("Opened %s database", store.driver)
		return store, nil

	case "memory":
		log.Warn("Using in-memory storage; entries are lost on restart")
		return NewMemoryStorage(), nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
