package db

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"lexia-auth/internal/config"
	"lexia-auth/internal/repository"
)

// UserStore es un almacen que ademas reporta su modo para /health.
type UserStore interface {
	repository.UserStore
	Status() repository.StoreStatus
}

// OpenUserStore elige el backend primario y lo envuelve con el archivo local de respaldo.
// Si el primario no puede construirse se sirve solo desde el archivo.
func OpenUserStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (UserStore, func()) {
	fallback := repository.NewFileUserStore(cfg.FallbackDBPath)
	noop := func() {}

	switch strings.ToLower(cfg.StoreBackend) {
	case config.BackendMongo:
		client, err := NewMongoClient(ctx, cfg)
		if err != nil {
			logger.Warn("mongo client init failed, using fallback file store", zap.Error(err))
			return fallback, noop
		}
		closeFn := func() {
			ctxClose, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(ctxClose)
		}
		primary := repository.NewMongoUserStore(client.Database(cfg.MongoDatabase))
		ctxInit, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := PingMongo(ctxInit, client); err != nil {
			logger.Warn("mongo ping failed, requests will fall back until it recovers", zap.Error(err))
		} else if err := primary.EnsureIndexes(ctxInit); err != nil {
			logger.Warn("mongo ensure indexes failed", zap.Error(err))
		}
		return repository.NewFallbackUserStore(logger, config.BackendMongo, primary, fallback), closeFn

	case config.BackendPostgres:
		pool, err := NewPool(ctx, cfg)
		if err != nil {
			logger.Warn("postgres pool init failed, using fallback file store", zap.Error(err))
			return fallback, noop
		}
		ctxInit, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := Ping(ctxInit, pool); err != nil {
			logger.Warn("postgres ping failed, requests will fall back until it recovers", zap.Error(err))
		} else if err := Migrate(ctxInit, pool); err != nil {
			logger.Error("postgres migrations failed", zap.Error(err))
		}
		return repository.NewFallbackUserStore(logger, config.BackendPostgres, repository.NewPgUserStore(pool), fallback), pool.Close

	case config.BackendFile:
		return fallback, noop
	}

	logger.Warn("unknown STORE_BACKEND, using file store", zap.String("backend", cfg.StoreBackend))
	return fallback, noop
}
