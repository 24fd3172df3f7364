package stores

import (
	"context"
	"fmt"
	"io"

	"bindiff/config"
	"bindiff/core"
	"bindiff/stores/aws"
	"bindiff/stores/filesystem"
	"bindiff/stores/memory"
	"bindiff/stores/postgres"
	"bindiff/stores/redis"
	"bindiff/stores/sqlite"

	"github.com/sirupsen/logrus"
)

// GetStore builds the backend selected by cfg.Type. Unknown or empty types fall
// back to the in-memory store. The returned closer is never nil.
func GetStore(ctx context.Context, cfg config.Storage) (core.RecordStore, io.Closer, error) {
	var (
		store  core.RecordStore
		closer io.Closer = nopCloser{}
		err    error
	)

	storageField := logrus.Fields{
		"storageType": cfg.Type,
	}

	switch cfg.Type {
	case "filesystem":
		storageField["basePath"] = cfg.LocalPath
		store, err = filesystem.NewRecordStore(cfg.LocalPath)
	case "sqlite":
		storageField["dataSourceName"] = cfg.DataSourceName
		store, err = sqlite.NewRecordStore(cfg.DataSourceName)
	case "postgres":
		var pg *postgres.RecordStore
		pg, err = postgres.Open(ctx, cfg.PostgresDSN)
		if err == nil {
			store, closer = pg, pg
		}
	case "redis":
		var rs *redis.RecordStore
		rs, err = redis.Open(ctx, cfg.RedisURL)
		if err == nil {
			store, closer = rs, rs
		}
	case "s3":
		storageField["bucketName"] = cfg.S3Bucket
		store, err = aws.NewRecordStore(ctx, cfg.S3Bucket)
	default:
		store = memory.NewRecordStore()
		storageField["storageType"] = "in-memory"
	}
	if err != nil {
		logrus.WithFields(storageField).WithError(err).Error("Failed to open storage")
		return nil, nil, fmt.Errorf("open %s storage: %w", cfg.Type, err)
	}

	logrus.WithFields(storageField).Info("Use storage")
	return store, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
