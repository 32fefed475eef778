package stores

import (
	"context"
	"fmt"
	"gameboard-server/config"
	"gameboard-server/core"
	"gameboard-server/stores/aws"
	"gameboard-server/stores/filesystem"
	"gameboard-server/stores/guard"
	"gameboard-server/stores/memory"
	"gameboard-server/stores/redis"
	"gameboard-server/stores/sqlite"

	"github.com/sirupsen/logrus"
)

// GetStore builds the backend named by cfg.StorageType and wraps it in a per-blob lock guard.
func GetStore(ctx context.Context, cfg *config.Config) (core.LockedBlobStore, error) {
	var backend core.BlobStore

	storageField := logrus.Fields{
		"storageType": cfg.StorageType,
	}

	switch cfg.StorageType {
	case "", "filesystem":
		storageField["storageType"] = "filesystem"
		storageField["basePath"] = cfg.LocalStoragePath
		store, err := filesystem.NewStore(cfg.LocalStoragePath)
		if err != nil {
			return nil, err
		}
		backend = store
	case "memory":
		backend = memory.NewStore()
		storageField["storageType"] = "in-memory"
	case "sqlite":
		storageField["dataSourceName"] = cfg.DataSourceName
		store, err := sqlite.NewStore(cfg.DataSourceName)
		if err != nil {
			return nil, err
		}
		backend = store
	case "s3":
		if cfg.S3BucketName == "" {
			return nil, fmt.Errorf("S3_BUCKET_NAME environment variable must be set for s3 storage type")
		}
		storageField["bucketName"] = cfg.S3BucketName
		store, err := aws.NewStore(ctx, cfg.S3BucketName, cfg.S3Prefix)
		if err != nil {
			return nil, err
		}
		backend = store
	case "redis":
		if cfg.Redis.Addr == "" {
			return nil, fmt.Errorf("REDIS_ADDR environment variable must be set for redis storage type")
		}
		storageField["redisAddr"] = cfg.Redis.Addr
		store, err := redis.NewStore(ctx, redis.Options{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
		if err != nil {
			return nil, err
		}
		backend = store
	default:
		return nil, fmt.Errorf("unknown STORAGE_TYPE %q", cfg.StorageType)
	}

	logrus.WithFields(storageField).Info("Use storage")
	return guard.New(backend), nil
}
