package queue

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/lmscore/internal/realtime"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("enqueue without deadline")
	}
	f.tasks = append(f.tasks, task)
	f.opts = append(f.opts, opts)
	return &asynq.TaskInfo{}, nil
}

type errCount struct{ n atomic.Int64 }

func (e *errCount) RecordAuditEnqueueError() { e.n.Add(1) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func int64p(v int64) *int64 { return &v }

var fixedNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func TestAuditorEventDropped(t *testing.T) {
	c := qt.New(t)
	fake := &fakeEnqueuer{}
	a := NewAuditor(NewClientWith(fake), quietLogger(), nil)
	a.now = func() time.Time { return fixedNow }

	a.EventDropped(context.Background(), realtime.DroppedEvent{
		ConnectionID:     "conn-1",
		PrincipalID:      40,
		TenantID:         int64p(4),
		EventType:        "message",
		Reason:           realtime.DropTenantMismatch,
		ClaimedTenantIDs: []int64{5},
	})
	a.Close()

	c.Assert(fake.tasks, qt.HasLen, 1)
	c.Assert(fake.tasks[0].Type(), qt.Equals, TypeEventDropped)
	var got EventDroppedPayload
	c.Assert(json.Unmarshal(fake.tasks[0].Payload(), &got), qt.IsNil)
	c.Assert(got, qt.DeepEquals, EventDroppedPayload{
		ConnectionID:     "conn-1",
		PrincipalID:      40,
		TenantID:         int64p(4),
		EventType:        "message",
		Reason:           "tenant mismatch",
		ClaimedTenantIDs: []int64{5},
		OccurredAt:       fixedNow,
	})
}

func TestAuditorAccessDeniedSurvivesCancelledRequest(t *testing.T) {
	c := qt.New(t)
	fake := &fakeEnqueuer{}
	a := NewAuditor(NewClientWith(fake), quietLogger(), nil)
	a.now = func() time.Time { return fixedNow }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a.AccessDenied(ctx, AccessDeniedPayload{PrincipalID: int64p(5), RequestedTenantID: int64p(13), Reason: "cross-tenant access denied"})
	a.Close()

	c.Assert(fake.tasks, qt.HasLen, 1)
	c.Assert(fake.tasks[0].Type(), qt.Equals, TypeAccessDenied)
	var got AccessDeniedPayload
	c.Assert(json.Unmarshal(fake.tasks[0].Payload(), &got), qt.IsNil)
	c.Assert(got.OccurredAt.Equal(fixedNow), qt.IsTrue)
	c.Assert(*got.RequestedTenantID, qt.Equals, int64(13))
}

func TestAuditorEnqueueFailureIsCounted(t *testing.T) {
	c := qt.New(t)
	rec := &errCount{}
	a := NewAuditor(NewClientWith(&fakeEnqueuer{err: errors.New("redis down")}), quietLogger(), rec)

	a.AccessDenied(context.Background(), AccessDeniedPayload{Reason: "tenant id required"})
	a.EventDropped(context.Background(), realtime.DroppedEvent{Reason: realtime.DropUserMismatch})
	a.Close()
	c.Assert(rec.n.Load(), qt.Equals, int64(2))

	a.AccessDenied(context.Background(), AccessDeniedPayload{Reason: "after close"})
	c.Assert(rec.n.Load(), qt.Equals, int64(3))
}

type blockingEnqueuer struct {
	release chan struct{}
	sent    atomic.Int64
}

func (b *blockingEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	<-b.release
	b.sent.Add(1)
	return &asynq.TaskInfo{}, nil
}

func TestAuditorDoesNotBlockCaller(t *testing.T) {
	c := qt.New(t)
	slow := &blockingEnqueuer{release: make(chan struct{})}
	rec := &errCount{}
	a := NewAuditor(NewClientWith(slow), quietLogger(), rec)

	start := time.Now()
	total := auditBuffer + 10
	for i := 0; i < total; i++ {
		a.AccessDenied(context.Background(), AccessDeniedPayload{Reason: "cross-tenant access denied"})
	}
	c.Assert(time.Since(start) < enqueueTimeout, qt.IsTrue)
	c.Assert(rec.n.Load() > 0, qt.IsTrue)

	close(slow.release)
	a.Close()
	c.Assert(slow.sent.Load()+rec.n.Load(), qt.Equals, int64(total))
}
