package queue

import "time"

const (
	TypeAccessDenied = "audit:access_denied"
	TypeEventDropped = "audit:event_dropped"
)

// QueueAudit is the asynq queue audit tasks are enqueued on.
const QueueAudit = "audit"

type AccessDeniedPayload struct {
	PrincipalID       *int64    `json:"principal_id,omitempty"`
	PrincipalTenantID *int64    `json:"principal_tenant_id,omitempty"`
	RequestedTenantID *int64    `json:"requested_tenant_id,omitempty"`
	Error             string    `json:"error"`
	Reason            string    `json:"reason"`
	Method            string    `json:"method"`
	Path              string    `json:"path"`
	RequestID         string    `json:"request_id,omitempty"`
	IPAddress         string    `json:"ip_address,omitempty"`
	OccurredAt        time.Time `json:"occurred_at"`
}

type EventDroppedPayload struct {
	ConnectionID     string    `json:"connection_id"`
	PrincipalID      int64     `json:"principal_id"`
	TenantID         *int64    `json:"tenant_id,omitempty"`
	EventType        string    `json:"event_type"`
	Reason           string    `json:"reason"`
	ClaimedTenantIDs []int64   `json:"claimed_tenant_ids,omitempty"`
	ClaimedUserIDs   []int64   `json:"claimed_user_ids,omitempty"`
	OccurredAt       time.Time `json:"occurred_at"`
}
