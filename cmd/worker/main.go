package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-shop/meridian/internal/app"
	"github.com/meridian-shop/meridian/internal/gueststore"
	"github.com/meridian-shop/meridian/internal/platform/cache"
	"github.com/meridian-shop/meridian/internal/platform/db"
	"github.com/meridian-shop/meridian/internal/reconcile"
	"github.com/meridian-shop/meridian/internal/remote"
	"github.com/meridian-shop/meridian/internal/shared"
	"github.com/meridian-shop/meridian/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	var pool *pgxpool.Pool
	if cfg.PGDSN != "" {
		pool, err = db.New(ctx, cfg.PGDSN)
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
	}

	var idempotencyGuard reconcile.IdempotencyGuard
	if pool != nil {
		idempotencyGuard = shared.NewIdempotencyStore(pool)
	}

	remoteClient := remote.NewClient(cfg.RemoteBaseURL, cfg.RemoteTimeout)
	reconciler := reconcile.NewService(remoteClient, remoteClient, idempotencyGuard, logger)
	handler := jobs.NewReconcileRetryHandler(gueststore.NewRedisKV(redisClient, cfg.GuestTTL), reconciler, logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Handler:   handler,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("build worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker stopped")
}
