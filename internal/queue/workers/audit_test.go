package workers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/lmscore/internal/audit"
	"github.com/nikhilbhutani/lmscore/internal/queue"
)

type captureWriter struct {
	entries []audit.LogEntry
	err     error
}

func (w *captureWriter) Log(_ context.Context, e audit.LogEntry) error {
	if w.err != nil {
		return w.err
	}
	w.entries = append(w.entries, e)
	return nil
}

func int64p(v int64) *int64 { return &v }

func task(c *qt.C, taskType string, payload any) *asynq.Task {
	c.Helper()
	data, err := json.Marshal(payload)
	c.Assert(err, qt.IsNil)
	return asynq.NewTask(taskType, data)
}

func TestProcessAccessDenied(t *testing.T) {
	c := qt.New(t)
	w := &captureWriter{}
	worker := NewAuditWorker(w)
	at := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	err := worker.ProcessAccessDenied(context.Background(), task(c, queue.TypeAccessDenied, queue.AccessDeniedPayload{
		PrincipalID:       int64p(5),
		PrincipalTenantID: int64p(12),
		RequestedTenantID: int64p(13),
		Reason:            "cross-tenant access denied",
		Method:            "GET",
		Path:              "/api/v1/tenants/13/courses",
		IPAddress:         "10.0.0.1",
		OccurredAt:        at,
	}))
	c.Assert(err, qt.IsNil)
	c.Assert(w.entries, qt.HasLen, 1)

	e := w.entries[0]
	c.Assert(e.Action, qt.Equals, audit.ActionAccessDenied)
	c.Assert(*e.TenantID, qt.Equals, int64(12))
	c.Assert(*e.PrincipalID, qt.Equals, int64(5))
	c.Assert(e.Details["requested_tenant_id"], qt.Equals, int64(13))
	c.Assert(e.OccurredAt.Equal(at), qt.IsTrue)
}

func TestProcessEventDropped(t *testing.T) {
	c := qt.New(t)
	w := &captureWriter{}
	err := NewAuditWorker(w).ProcessEventDropped(context.Background(), task(c, queue.TypeEventDropped, queue.EventDroppedPayload{
		ConnectionID:     "conn-1",
		PrincipalID:      40,
		TenantID:         int64p(4),
		EventType:        "message",
		Reason:           "tenant mismatch",
		ClaimedTenantIDs: []int64{5},
	}))
	c.Assert(err, qt.IsNil)
	c.Assert(w.entries[0].Action, qt.Equals, audit.ActionEventDropped)
	c.Assert(*w.entries[0].PrincipalID, qt.Equals, int64(40))
}

func TestProcessMalformedPayloadSkipsRetry(t *testing.T) {
	c := qt.New(t)
	worker := NewAuditWorker(&captureWriter{})
	err := worker.ProcessAccessDenied(context.Background(), asynq.NewTask(queue.TypeAccessDenied, []byte("{")))
	c.Assert(err, qt.ErrorIs, asynq.SkipRetry)
}

func TestProcessWriteFailureRetries(t *testing.T) {
	c := qt.New(t)
	cause := errors.New("db down")
	worker := NewAuditWorker(&captureWriter{err: cause})
	err := worker.ProcessEventDropped(context.Background(), task(c, queue.TypeEventDropped, queue.EventDroppedPayload{PrincipalID: 1}))
	c.Assert(err, qt.ErrorIs, cause)
	c.Assert(errors.Is(err, asynq.SkipRetry), qt.IsFalse)
}
