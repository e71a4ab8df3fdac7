package app

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	cacheblob "zipsight/internal/cache/blob"
	"zipsight/internal/config"
	blobrepo "zipsight/internal/repository/blob"
)

// initBlobStore builds the configured blob backend and wraps it in the
// read-through cache unless caching is disabled.
func initBlobStore(cfg *config.Config, log *logrus.Entry) (blobrepo.Store, error) {
	origin, err := initOriginStore(cfg, log)
	if err != nil {
		return nil, err
	}
	if !cfg.Cache.Enabled {
		return origin, nil
	}
	return cacheblob.NewCachedStore(origin, cacheblob.DefaultCacheConfig()), nil
}

func initOriginStore(cfg *config.Config, log *logrus.Entry) (blobrepo.Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Backend)) {
	case "", "memory":
		log.Info("blob store: in-memory")
		return blobrepo.NewMemoryStore(), nil
	case "file":
		log.WithField("root", cfg.Storage.FileRoot).Info("blob store: file")
		return blobrepo.NewFileStore(cfg.Storage.FileRoot), nil
	case "postgres":
		store, err := blobrepo.NewPostgresStore(cfg.Storage.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres store: %w", err)
		}
		log.Info("blob store: postgres")
		return store, nil
	case "s3":
		store, err := blobrepo.NewS3Store(blobrepo.S3Config{
			Endpoint:  cfg.Storage.S3.Endpoint,
			Region:    cfg.Storage.S3.Region,
			AccessKey: cfg.Storage.S3.AccessKey,
			SecretKey: cfg.Storage.S3.SecretKey,
			Bucket:    cfg.Storage.S3.Bucket,
			UseSSL:    cfg.Storage.S3.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize s3 store: %w", err)
		}
		log.WithFields(logrus.Fields{
			"bucket":   cfg.Storage.S3.Bucket,
			"endpoint": cfg.Storage.S3.Endpoint,
		}).Info("blob store: s3")
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
