package queue

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/hibiken/asynq"
)

// HandlersRegistry collects the task handlers a worker process serves.
type HandlersRegistry struct {
	mux   *asynq.ServeMux
	types map[string]struct{}
}

func NewHandlersRegistry() *HandlersRegistry {
	return &HandlersRegistry{
		mux:   asynq.NewServeMux(),
		types: make(map[string]struct{}),
	}
}

func (r *HandlersRegistry) Register(taskType string, handler asynq.Handler) {
	r.mux.Handle(taskType, handler)
	r.types[taskType] = struct{}{}
}

// Types lists the registered task types in sorted order.
func (r *HandlersRegistry) Types() []string {
	out := make([]string, 0, len(r.types))
	for t := range r.types {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// UseLogging logs every processed task with its outcome and duration.
func (r *HandlersRegistry) UseLogging(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	r.mux.Use(func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
			start := time.Now()
			err := next.ProcessTask(ctx, t)
			attrs := []any{"type", t.Type(), "duration_ms", time.Since(start).Milliseconds()}
			if id, ok := asynq.GetTaskID(ctx); ok {
				attrs = append(attrs, "task_id", id)
			}
			if err != nil {
				logger.Error("task failed", append(attrs, "error", err)...)
				return err
			}
			logger.Debug("task processed", attrs...)
			return nil
		})
	})
}

func (r *HandlersRegistry) Mux() *asynq.ServeMux {
	return r.mux
}
