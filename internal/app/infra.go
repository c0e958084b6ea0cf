package app

import (
	"context"
	"errors"

	"federated-auth/internal/config"
	"federated-auth/internal/db"
	"federated-auth/internal/identity"
	"federated-auth/internal/logger"
	"federated-auth/internal/redis"
	"federated-auth/internal/session"
)

// Infra holds the backing stores selected by configuration.
type Infra struct {
	Identities identity.Store
	Sessions   session.Store

	closers []func() error
}

func setupInfra(ctx context.Context, cfg config.Config) (*Infra, error) {
	infra := &Infra{}

	switch cfg.IdentityStore {
	case config.BackendPostgres:
		database, err := db.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		infra.closers = append(infra.closers, database.Close)
		infra.Identities = identity.NewPostgresStore(database)
		logger.Info("database ready", nil)
	default:
		infra.Identities = identity.NewMemoryStore()
		logger.Warn("identity store is in memory; identities are lost on restart", nil)
	}

	switch cfg.SessionStore {
	case config.BackendRedis:
		client, err := redis.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			_ = infra.Close()
			return nil, err
		}
		infra.closers = append(infra.closers, client.Close)
		infra.Sessions = session.NewRedisStore(client.Client)
		logger.Info("redis ready", nil)
	default:
		infra.Sessions = session.NewMemoryStore()
	}

	return infra, nil
}

func (i *Infra) Close() error {
	var errs []error
	for n := len(i.closers) - 1; n >= 0; n-- {
		errs = append(errs, i.closers[n]())
	}
	i.closers = nil
	return errors.Join(errs...)
}
