package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/lmscore/internal/config"
)

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type Client struct {
	client Enqueuer
	closer func() error
}

func NewClient(cfg config.RedisConfig) *Client {
	c := asynq.NewClient(RedisOpt(cfg))
	return &Client{client: c, closer: c.Close}
}

// NewClientWith wraps an existing enqueuer.
func NewClientWith(e Enqueuer) *Client {
	return &Client{client: e}
}

func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

func (c *Client) EnqueueAccessDenied(ctx context.Context, payload AccessDeniedPayload) error {
	return c.enqueue(ctx, TypeAccessDenied, payload, asynq.MaxRetry(5), asynq.Queue(QueueAudit))
}

func (c *Client) EnqueueEventDropped(ctx context.Context, payload EventDroppedPayload) error {
	return c.enqueue(ctx, TypeEventDropped, payload, asynq.MaxRetry(5), asynq.Queue(QueueAudit))
}

func (c *Client) enqueue(ctx context.Context, taskType string, payload interface{}, opts ...asynq.Option) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(taskType, data)
	opts = append(opts, asynq.TaskID(uuid.NewString()))
	_, err = c.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return nil
}
