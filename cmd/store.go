package cmd

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/wecollab/matchmaker/internal/secrets"
	"github.com/wecollab/matchmaker/internal/store"
	"github.com/wecollab/matchmaker/internal/store/cache"
	"github.com/wecollab/matchmaker/internal/store/file"
	"github.com/wecollab/matchmaker/internal/store/memory"
	"github.com/wecollab/matchmaker/internal/store/postgres"
	"github.com/wecollab/matchmaker/internal/store/remote"
	"github.com/wecollab/matchmaker/internal/store/sqldb"
	"github.com/wecollab/matchmaker/internal/utils"
)

const (
	driverMemory   = "memory"
	driverFile     = "file"
	driverPostgres = "postgres"
	driverSQLite   = "sqlite"
	driverMySQL    = "mysql"
	driverRemote   = "remote"
)

// openStore opens the configured backend, retrying drivers that dial a
// server, and wraps it with the Redis cache when enabled.
func openStore(ctx context.Context, cfg StoreConfig, logger *zap.Logger) (store.Backend, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	log := logger.With(zap.String("driver", driver))

	attempts := cfg.ConnectAttempts
	switch driver {
	case driverMemory, driverFile, driverSQLite:
		attempts = 1
	}

	var backend store.Backend
	err := utils.Retry(ctx, attempts, cfg.ConnectDelay, func(attempt int) error {
		b, err := openBackend(ctx, driver, cfg, logger)
		if err != nil {
			log.Warn("opening profile store failed", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		backend = b
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s profile store: %w", driver, err)
	}

	log.Info("profile store opened")

	if cfg.Cache == nil || !cfg.Cache.Enabled {
		return backend, nil
	}

	cached, err := withCache(ctx, backend, *cfg.Cache, logger)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	return cached, nil
}

func openBackend(ctx context.Context, driver string, cfg StoreConfig, logger *zap.Logger) (store.Backend, error) {
	switch driver {
	case driverMemory:
		return memory.New(), nil
	case driverFile:
		return file.Open(cfg.Path)
	case driverSQLite:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = cfg.Path
		}
		return sqldb.Open(ctx, sqldb.DriverSQLite, dsn, cfg.Table)
	case driverPostgres:
		dsn, err := loadDSN(cfg)
		if err != nil {
			return nil, err
		}
		return postgres.Open(ctx, dsn, cfg.Table)
	case driverMySQL:
		dsn, err := loadDSN(cfg)
		if err != nil {
			return nil, err
		}
		return sqldb.Open(ctx, sqldb.DriverMySQL, dsn, cfg.Table)
	case driverRemote:
		if strings.TrimSpace(cfg.URL) == "" {
			return nil, fmt.Errorf("store.url is required for the %s driver", driverRemote)
		}
		token, err := secrets.Load(secrets.Source{Name: "remote store token", Value: cfg.Token, File: cfg.TokenFile, Optional: true})
		if err != nil {
			return nil, err
		}
		return remote.New(cfg.URL, token, logger), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

func loadDSN(cfg StoreConfig) (string, error) {
	return secrets.Load(secrets.Source{Name: "database dsn", Value: cfg.DSN, File: cfg.DSNFile})
}

func withCache(ctx context.Context, backend store.Backend, cfg CacheConfig, logger *zap.Logger) (store.Backend, error) {
	password, err := secrets.Load(secrets.Source{Name: "redis password", Value: cfg.Password, File: cfg.PasswordFile, Optional: true})
	if err != nil {
		return nil, err
	}
	cfg.Password = password

	client, err := cache.NewClient(ctx, cfg.Config)
	if err != nil {
		return nil, err
	}

	logger.Info("profile cache enabled", zap.String("addr", cfg.Addr), zap.Duration("ttl", cfg.TTL))
	return cache.New(backend, client, cfg.TTL, cfg.Prefix, logger), nil
}
