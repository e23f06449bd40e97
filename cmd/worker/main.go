package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/lmscore/internal/audit"
	"github.com/nikhilbhutani/lmscore/internal/config"
	"github.com/nikhilbhutani/lmscore/internal/database"
	"github.com/nikhilbhutani/lmscore/internal/queue"
	"github.com/nikhilbhutani/lmscore/internal/queue/workers"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.NewPool(context.Background(), cfg.Database)
	if err != nil {
		slog.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	srv := asynq.NewServer(
		queue.RedisOpt(cfg.Redis),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				queue.QueueAudit: 1,
			},
			Logger: asynqLogger{logger},
		},
	)

	registry := queue.NewHandlersRegistry()

	// Register workers
	workers.NewAuditWorker(audit.NewService(db)).Register(registry)
	registry.UseLogging(logger)

	slog.Info("starting worker", "concurrency", 10, "queue", queue.QueueAudit, "task_types", registry.Types())
	if err := srv.Run(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
