package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-shop/meridian/internal/app"
	"github.com/meridian-shop/meridian/internal/authz"
	"github.com/meridian-shop/meridian/internal/gateway"
	"github.com/meridian-shop/meridian/internal/gueststore"
	"github.com/meridian-shop/meridian/internal/observability"
	"github.com/meridian-shop/meridian/internal/platform/cache"
	"github.com/meridian-shop/meridian/internal/platform/db"
	"github.com/meridian-shop/meridian/internal/reconcile"
	"github.com/meridian-shop/meridian/internal/remote"
	"github.com/meridian-shop/meridian/internal/session"
	"github.com/meridian-shop/meridian/internal/shared"
	"github.com/meridian-shop/meridian/jobs"
)

// retryBridge adapts the jobs enqueuer to the session machine's hook.
type retryBridge struct {
	enqueuer *jobs.Enqueuer
}

func (b retryBridge) EnqueueRetry(ctx context.Context, sessionID, token string, actorID int64) error {
	return b.enqueuer.EnqueueRetry(ctx, sessionID, token, actorID)
}

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

	var auditLogger *shared.AuditLogger
	var idempotencyGuard reconcile.IdempotencyGuard
	if pool != nil {
		auditLogger = shared.NewAuditLogger(pool)
		idempotencyGuard = shared.NewIdempotencyStore(pool)
	}

	remoteClient := remote.NewClient(cfg.RemoteBaseURL, cfg.RemoteTimeout)
	reconciler := reconcile.NewService(remoteClient, remoteClient, idempotencyGuard, logger)

	var retry session.RetryEnqueuer
	if cfg.WorkerEnabled {
		asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() {
			if err := asynqClient.Close(); err != nil {
				logger.Warn("asynq close", slog.Any("error", err))
			}
		}()
		retry = retryBridge{enqueuer: jobs.NewEnqueuer(asynqClient, logger)}
	}

	metrics := observability.NewMetrics()
	registry := gateway.NewRegistry(gateway.RegistryConfig{
		KV:           gueststore.NewRedisKV(redisClient, cfg.GuestTTL),
		API:          remoteClient,
		Reconciler:   reconciler,
		Retry:        retry,
		Audit:        auditLogger,
		Logger:       logger,
		OnTransition: metrics.ObserveTransition,
		OnReconcile:  metrics.ObserveReconcile,
		IdleTTL:      cfg.SessionIdle,
		CookieSecure: cfg.IsProduction(),
	})

	handler := gateway.NewHandler(logger, authz.NewEngine(), metrics.Handler())
	router := app.NewRouter(app.RouterParams{
		Logger:   logger,
		Config:   cfg,
		Registry: registry,
		Handler:  handler,
		Metrics:  metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go sweepLoop(ctx, registry, logger)

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", slog.Any("error", err))
	}
	logger.Info("server stopped")
}

func sweepLoop(ctx context.Context, registry *gateway.Registry, logger *slog.Logger) {
	ticker := time.NewTicker(15 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := registry.Sweep(); removed > 0 {
				logger.Info("swept idle sessions", slog.Int("removed", removed))
			}
		}
	}
}
