package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/yakoovad/teambuilder/internal/config"
	"github.com/yakoovad/teambuilder/internal/db"
	"github.com/yakoovad/teambuilder/internal/repository"
	"github.com/yakoovad/teambuilder/internal/repository/memrepo"
	"go.uber.org/zap"
)

type storage struct {
	transactor db.Transactor
	teams      repository.TeamRepository
	users      repository.UserRepository
	ping       func(ctx context.Context) error
	close      func()
}

func openStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storage, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		logger.Warn("using in-memory storage, data is lost on restart")
		store := memrepo.New()
		return &storage{
			transactor: store.Transactor(),
			teams:      store.Teams(),
			users:      store.Users(),
			ping:       func(context.Context) error { return nil },
			close:      func() {},
		}, nil

	case config.StoragePostgres, "":
		if cfg.PostgresConfig.MigrateOnStart {
			if err := db.Migrate(cfg.PostgresConfig.DSN); err != nil {
				return nil, errors.Wrap(err, "failed to apply migrations")
			}
			logger.Info("migrations applied")
		}

		pool, err := db.NewPool(ctx, cfg.PostgresConfig.DSN, cfg.PostgresConfig.MaxConns)
		if err != nil {
			return nil, errors.Wrap(err, "failed to connect to database")
		}
		logger.Info("database connection established")

		return &storage{
			transactor: db.NewPgxTransactor(pool),
			teams:      repository.NewPgxTeamRepository(pool),
			users:      repository.NewPgxUserRepository(pool),
			ping:       pool.Ping,
			close:      pool.Close,
		}, nil
	}

	return nil, errors.Errorf("unknown storage %q", cfg.Storage)
}
