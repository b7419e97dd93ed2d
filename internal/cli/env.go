package cli

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/llehouerou/wavecast/internal/config"
	"github.com/llehouerou/wavecast/internal/errmsg"
	"github.com/llehouerou/wavecast/internal/kv"
	"github.com/llehouerou/wavecast/internal/kv/redis"
	"github.com/llehouerou/wavecast/internal/kv/sqlite"
	"github.com/llehouerou/wavecast/internal/logging"
)

// env is what every command needs: configuration, a logger and the
// session storage.
type env struct {
	cfg   *config.Config
	log   *zap.Logger
	store kv.Store
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load(configPaths...)
	if err != nil {
		return nil, errors.New(errmsg.Format(errmsg.OpConfigLoad, err))
	}
	log, err := logging.New(cfg.LoggingConfig())
	if err != nil {
		return nil, errors.New(errmsg.Format(errmsg.OpConfigLoad, err))
	}
	store, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		_ = log.Sync()
		return nil, errors.New(errmsg.Format(errmsg.OpStorageOpen, err))
	}
	log.Debug("storage opened", zap.String("driver", cfg.Storage.Driver))
	return &env{cfg: cfg, log: log, store: store}, nil
}

func (e *env) Close() {
	if err := e.store.Close(); err != nil {
		e.log.Warn("close storage", zap.Error(err))
	}
	_ = e.log.Sync()
}

func openStorage(ctx context.Context, sc config.StorageConfig) (kv.Store, error) {
	switch sc.Driver {
	case config.DriverRedis:
		return redis.Open(ctx, redis.Options{
			Addr:     sc.RedisAddr,
			Password: sc.RedisPassword,
			DB:       sc.RedisDB,
			Prefix:   sc.RedisPrefix,
		})
	case config.DriverMemory:
		return kv.NewMemory(), nil
	default:
		return sqlite.Open(sc.Path)
	}
}
