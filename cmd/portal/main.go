package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/course-portal/portal/internal/app"
	"github.com/course-portal/portal/internal/auth"
	"github.com/course-portal/portal/internal/dashboard"
	"github.com/course-portal/portal/internal/guard"
	"github.com/course-portal/portal/internal/observability"
	"github.com/course-portal/portal/internal/platform/backend"
	"github.com/course-portal/portal/internal/platform/cache"
	"github.com/course-portal/portal/internal/platform/db"
	"github.com/course-portal/portal/internal/platform/migration"
	"github.com/course-portal/portal/internal/shared"
	"github.com/course-portal/portal/internal/view"
	"github.com/course-portal/portal/jobs"
)

func main() {
	migrateOnly := flag.Bool("migrate", false, "apply database migrations and exit")
	flag.Parse()

	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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
	slog.SetDefault(logger)

	if *migrateOnly {
		if cfg.PGDSN == "" {
			logger.Error("PG_DSN is required to run migrations")
			os.Exit(1)
		}
		if err := migration.RunUp(cfg.PGDSN, logger); err != nil {
			logger.Error("run migrations", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("portal stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	metrics := observability.NewMetrics()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	health := map[string]app.HealthCheck{
		"redis": func(r *http.Request) error { return redisClient.Ping(r.Context()).Err() },
	}

	var authRepo auth.Repository
	if cfg.PGDSN != "" {
		var pool *pgxpool.Pool
		pool, err = db.New(ctx, cfg.PGDSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		authRepo = auth.NewRepository(pool)
		health["postgres"] = func(r *http.Request) error { return pool.Ping(r.Context()) }
	} else {
		logger.Warn("PG_DSN not set, login sessions will not be audited")
	}

	sessionManager, err := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	if err != nil {
		return err
	}
	sessionManager.WithLogger(logger)
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		return err
	}
	responder := view.NewResponder(templates, csrfManager, logger, dashboard.Navigation)

	api, err := backend.NewClient(backend.Config{
		BaseURL: cfg.BackendURL,
		Timeout: cfg.BackendTimeout,
		Tokens:  shared.CredentialFromContext,
		Logger:  logger,
		Metrics: metrics,
	})
	if err != nil {
		return err
	}

	routeGuard := guard.New(guard.Options{
		Logger:        logger,
		Metrics:       metrics,
		CompatDeadEnd: cfg.GuardCompatDeadEnd,
		Forbidden:     responder.Forbidden(),
	})

	authHandler := auth.NewHandler(logger, auth.NewService(api, authRepo, logger), responder, csrfManager, cfg.SessionTTL)
	dashboardHandler := app.NewDashboard(app.DashboardParams{
		Logger:     logger,
		API:        api,
		StatsCache: cache.NewJSON(redisClient, "portal:dashboard:stats", cfg.StatsCacheTTL),
		Guard:      routeGuard,
		Responder:  responder,
		Metrics:    metrics,
	})

	redisOpt, err := jobs.RedisOpt(cfg.RedisAddr)
	if err != nil {
		return err
	}
	inspector := asynq.NewInspector(redisOpt)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Responder:        responder,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		AuthHandler:      authHandler,
		DashboardHandler: dashboardHandler,
		JobHandler:       jobs.NewHandler(inspector, logger),
		Metrics:          metrics,
		Health:           health,
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: cfg.AppReadTimeout,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("backend", cfg.BackendURL))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
