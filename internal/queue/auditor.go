package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nikhilbhutani/lmscore/internal/realtime"
)

const (
	enqueueTimeout = time.Second
	auditBuffer    = 256
)

// ErrorRecorder counts audit tasks that could not be enqueued.
type ErrorRecorder interface {
	RecordAuditEnqueueError()
}

type auditJob struct {
	ctx      context.Context
	taskType string
	enqueue  func(ctx context.Context) error
}

// Auditor turns access denials and dropped realtime events into audit
// tasks. Tasks are handed to a background sender through a bounded buffer,
// so the request or event being audited never waits on Redis. Enqueue
// failures and tasks that do not fit the buffer are logged and counted.
type Auditor struct {
	client   *Client
	logger   *slog.Logger
	recorder ErrorRecorder
	now      func() time.Time

	mu     sync.RWMutex
	closed bool
	jobs   chan auditJob
	done   chan struct{}
}

// NewAuditor starts the background sender. Call Close to flush buffered
// tasks and stop it.
func NewAuditor(client *Client, logger *slog.Logger, rec ErrorRecorder) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Auditor{
		client:   client,
		logger:   logger,
		recorder: rec,
		now:      time.Now,
		jobs:     make(chan auditJob, auditBuffer),
		done:     make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Auditor) AccessDenied(ctx context.Context, p AccessDeniedPayload) {
	if p.OccurredAt.IsZero() {
		p.OccurredAt = a.now()
	}
	a.submit(ctx, TypeAccessDenied, func(ctx context.Context) error {
		return a.client.EnqueueAccessDenied(ctx, p)
	})
}

// EventDropped implements realtime.DropAuditor.
func (a *Auditor) EventDropped(ctx context.Context, d realtime.DroppedEvent) {
	p := EventDroppedPayload{
		ConnectionID:     d.ConnectionID,
		PrincipalID:      d.PrincipalID,
		TenantID:         d.TenantID,
		EventType:        d.EventType,
		Reason:           d.Reason,
		ClaimedTenantIDs: d.ClaimedTenantIDs,
		ClaimedUserIDs:   d.ClaimedUserIDs,
		OccurredAt:       a.now(),
	}
	a.submit(ctx, TypeEventDropped, func(ctx context.Context) error {
		return a.client.EnqueueEventDropped(ctx, p)
	})
}

// Close stops accepting tasks and waits until buffered ones are sent.
func (a *Auditor) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.jobs)
	}
	a.mu.Unlock()
	<-a.done
}

func (a *Auditor) submit(ctx context.Context, taskType string, enqueue func(context.Context) error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.failed(taskType, errAuditorClosed)
		return
	}
	select {
	case a.jobs <- auditJob{ctx: ctx, taskType: taskType, enqueue: enqueue}:
	default:
		a.failed(taskType, errAuditBufferFull)
	}
}

func (a *Auditor) run() {
	defer close(a.done)
	for job := range a.jobs {
		ctx, cancel := a.detach(job.ctx)
		if err := job.enqueue(ctx); err != nil {
			a.failed(job.taskType, err)
		}
		cancel()
	}
}

var (
	errAuditorClosed   = errors.New("auditor closed")
	errAuditBufferFull = errors.New("audit buffer full")
)

// detach keeps the enqueue alive when the request that caused it has
// already finished, bounded by enqueueTimeout.
func (a *Auditor) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), enqueueTimeout)
}

func (a *Auditor) failed(taskType string, err error) {
	a.logger.Error("audit enqueue failed", "task", taskType, "error", err)
	if a.recorder != nil {
		a.recorder.RecordAuditEnqueueError()
	}
}
