package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/lmscore/internal/audit"
	"github.com/nikhilbhutani/lmscore/internal/queue"
)

type AuditWriter interface {
	Log(ctx context.Context, entry audit.LogEntry) error
}

// AuditWorker writes access denials and dropped realtime events to the
// audit_logs table.
type AuditWorker struct {
	svc AuditWriter
}

func NewAuditWorker(svc AuditWriter) *AuditWorker {
	return &AuditWorker{svc: svc}
}

func (w *AuditWorker) ProcessAccessDenied(ctx context.Context, t *asynq.Task) error {
	var payload queue.AccessDeniedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	details := map[string]interface{}{
		"reason": payload.Reason,
		"error":  payload.Error,
		"method": payload.Method,
		"path":   payload.Path,
	}
	if payload.RequestedTenantID != nil {
		details["requested_tenant_id"] = *payload.RequestedTenantID
	}
	if payload.RequestID != "" {
		details["request_id"] = payload.RequestID
	}

	err := w.svc.Log(ctx, audit.LogEntry{
		TenantID:     payload.PrincipalTenantID,
		PrincipalID:  payload.PrincipalID,
		Action:       audit.ActionAccessDenied,
		ResourceType: "http_request",
		Details:      details,
		IPAddress:    payload.IPAddress,
		OccurredAt:   payload.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("record access denied: %w", err)
	}

	slog.Debug("access denial audited", "principal_id", payload.PrincipalID, "reason", payload.Reason)
	return nil
}

func (w *AuditWorker) ProcessEventDropped(ctx context.Context, t *asynq.Task) error {
	var payload queue.EventDroppedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	principalID := payload.PrincipalID
	err := w.svc.Log(ctx, audit.LogEntry{
		TenantID:     payload.TenantID,
		PrincipalID:  &principalID,
		Action:       audit.ActionEventDropped,
		ResourceType: "realtime_event",
		Details: map[string]interface{}{
			"connection_id":      payload.ConnectionID,
			"event_type":         payload.EventType,
			"reason":             payload.Reason,
			"claimed_tenant_ids": payload.ClaimedTenantIDs,
			"claimed_user_ids":   payload.ClaimedUserIDs,
		},
		OccurredAt: payload.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("record event dropped: %w", err)
	}

	slog.Debug("dropped event audited", "connection_id", payload.ConnectionID, "reason", payload.Reason)
	return nil
}

// Register binds the audit task types on the registry.
func (w *AuditWorker) Register(r *queue.HandlersRegistry) {
	r.Register(queue.TypeAccessDenied, asynq.HandlerFunc(w.ProcessAccessDenied))
	r.Register(queue.TypeEventDropped, asynq.HandlerFunc(w.ProcessEventDropped))
}
