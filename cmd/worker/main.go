// Package main runs the background job worker (workshop data backups to S3).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gaming-workshop/backend/config"
	"github.com/gaming-workshop/backend/internal/admin"
	"github.com/gaming-workshop/backend/internal/store"
	"github.com/gaming-workshop/backend/internal/worker"
	"github.com/gaming-workshop/backend/pkg/database"
	"github.com/gaming-workshop/backend/pkg/queue"
	"github.com/gaming-workshop/backend/pkg/redis"
	"github.com/gaming-workshop/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	st, cleanup, err := newStore(ctx, cfg, rdb, logger)
	if err != nil {
		logger.Fatal("store", zap.Error(err))
	}
	defer cleanup()

	s3Cfg := storage.S3Config{
		Region:               cfg.AWS.Region,
		AccessKeyID:          cfg.AWS.AccessKeyID,
		SecretAccessKey:      cfg.AWS.SecretAccessKey,
		BackupsBucket:        cfg.AWS.BackupsBucket,
		PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
	}
	s3Client, err := storage.NewS3(ctx, s3Cfg, logger)
	if err != nil {
		logger.Fatal("s3", zap.Error(err))
	}

	exporter := admin.NewExporter(st, time.Now)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	processor := worker.NewBackupProcessor(exporter, s3Client, jobQueue, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go processor.Run(workerCtx)
	logger.Info("worker started", zap.String("store_driver", cfg.Store.Driver))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}

// newStore builds the same collection store the server uses, so backups read
// live data.
func newStore(ctx context.Context, cfg *config.Config, rdb *redis.Client, logger *zap.Logger) (store.Store, func(), error) {
	switch cfg.Store.Driver {
	case "redis":
		return store.NewRedis(rdb.Client), func() {}, nil
	case "postgres":
		pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
		if err != nil {
			return nil, nil, err
		}
		return store.NewPostgres(pool), pool.Close, nil
	default:
		// memory is process-local and useless here; file covers the rest
		fs, err := store.NewFile(cfg.Store.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() {}, nil
	}
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
