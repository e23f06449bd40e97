package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/lmscore/internal/api"
	"github.com/nikhilbhutani/lmscore/internal/api/handlers"
	"github.com/nikhilbhutani/lmscore/internal/audit"
	"github.com/nikhilbhutani/lmscore/internal/auth"
	"github.com/nikhilbhutani/lmscore/internal/bootstrap"
	"github.com/nikhilbhutani/lmscore/internal/cache"
	"github.com/nikhilbhutani/lmscore/internal/config"
	"github.com/nikhilbhutani/lmscore/internal/course"
	"github.com/nikhilbhutani/lmscore/internal/database"
	"github.com/nikhilbhutani/lmscore/internal/metrics"
	"github.com/nikhilbhutani/lmscore/internal/queue"
	"github.com/nikhilbhutani/lmscore/internal/realtime"
	"github.com/nikhilbhutani/lmscore/internal/tenant"
)

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		slog.Warn("invalid LOG_LEVEL, using info", "value", cfg.Log.Level)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	applied, err := database.RunMigrations(ctx, db, cfg.Database.MigrationsPath)
	if err != nil {
		slog.Error("migrations failed", "error", err)
		os.Exit(1)
	}
	slog.Info("migrations up to date", "applied", len(applied))

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, status cache and cross-node fan-out degraded", "error", err)
	}
	defer rdb.Close()

	m := metrics.New(cfg.Metrics.Namespace)

	if cfg.Bootstrap.Enabled {
		res, err := bootstrap.NewResolver(
			bootstrap.NewPGStore(db),
			bootstrap.Config{AdminEmail: cfg.Bootstrap.AdminEmail, AdminName: cfg.Bootstrap.AdminName},
			bootstrap.WithLogger(logger),
			bootstrap.WithRecorder(m),
		).Run(ctx)
		if err != nil {
			slog.Error("bootstrap failed", "error", err)
			os.Exit(1)
		}
		slog.Info("bootstrap complete", "admin_id", res.Admin.ID, "created", res.Created, "patched", res.Patched)
	}

	queueClient := queue.NewClient(cfg.Redis)
	defer queueClient.Close()
	auditor := queue.NewAuditor(queueClient, logger, m)
	defer auditor.Close()

	tenantSvc := tenant.NewService(db)
	status := cache.NewStatusLookup(
		cache.NewCache(rdb, "lms:"), tenantSvc, cfg.Tenant.StatusCacheTTL, logger, m)

	resolver := auth.NewResolver(cfg.Auth.JWTSecret,
		auth.WithIssuer(cfg.Auth.Issuer),
		auth.WithLeeway(cfg.Auth.Leeway),
	)

	hub := realtime.NewHub(logger)
	bridge := realtime.NewBridge(rdb, cfg.Realtime.Channel, hub, logger)
	scopeRouter := realtime.NewScopeRouter(resolver, hub,
		realtime.WithLogger(logger),
		realtime.WithRecorder(m),
		realtime.WithDropAuditor(auditor),
		realtime.WithStatusGuard(tenant.NewGuard(status)),
		realtime.WithSendBuffer(cfg.Realtime.SendBuffer),
	)
	scopeRouter.On("message", func(ctx context.Context, s *realtime.Session, ev realtime.Event) {
		if s.Principal.TenantID == nil {
			return
		}
		if err := bridge.Emit(ctx, realtime.TenantGroup(*s.Principal.TenantID), ev); err != nil {
			logger.Error("relay message failed", "error", err, "connection_id", s.ID)
		}
	})

	go func() {
		if err := bridge.Run(ctx); err != nil {
			slog.Error("realtime bridge stopped", "error", err)
		}
	}()

	router := api.NewRouter(api.Deps{
		Config:   cfg,
		Logger:   logger,
		DB:       db,
		Redis:    rdb,
		Resolver: resolver,
		Status:   status,
		Tenants:  tenantSvc,
		Courses:  course.NewStore(db),
		Audit:    audit.NewService(db),
		Users:    tenantSvc,
		Emitter:  bridge,
		Realtime: realtime.NewHandler(scopeRouter, realtime.HandlerConfig{
			AllowedOrigins:   cfg.Realtime.AllowedOrigins,
			HandshakeTimeout: cfg.Realtime.HandshakeTimeout,
		}, logger),
		Metrics: m,
		Auditor: auditor,
		ReadyChecks: map[string]handlers.CheckFunc{
			"realtime_bridge": bridge.Check,
		},
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting API server", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}
