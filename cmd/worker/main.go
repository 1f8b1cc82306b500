package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/course-portal/portal/internal/app"
	"github.com/course-portal/portal/internal/auth"
	"github.com/course-portal/portal/internal/observability"
	"github.com/course-portal/portal/internal/platform/db"
	"github.com/course-portal/portal/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if cfg.PGDSN == "" {
		logger.Error("PG_DSN is required: the worker only prunes the session audit table")
		os.Exit(1)
	}
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisOpt, err := jobs.RedisOpt(cfg.RedisAddr)
	if err != nil {
		logger.Error("parse redis address", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	pruneJob := jobs.NewSessionPruneJob(auth.NewRepository(pool), logger, metrics)
	pruneTask, err := jobs.NewSessionPruneTask(cfg.SessionAuditRetention)
	if err != nil {
		logger.Error("build prune task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpt,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskSessionPrune, Handler: pruneJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.SessionPruneCron, Task: pruneTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	client, err := jobs.NewClient(redisOpt)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	// Catch up on rows that expired while the worker was down.
	if _, err := client.EnqueueSessionPrune(ctx, cfg.SessionAuditRetention); err != nil && !errors.Is(err, asynq.ErrDuplicateTask) {
		logger.Warn("enqueue startup prune", slog.Any("error", err))
	}

	logger.Info("worker started", slog.String("prune_cron", cfg.SessionPruneCron))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
