package realtime

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/lmscore/internal/auth"
	"github.com/nikhilbhutani/lmscore/internal/tenant"
)

// Drop reasons.
const (
	DropTenantMismatch = "tenant mismatch"
	DropUserMismatch   = "user mismatch"
	DropMalformed      = "malformed payload"
	DropUnhandled      = "unhandled event"
)

type TokenResolver interface {
	Resolve(token string) (*auth.Principal, error)
}

// Recorder observes connection counts and dropped events.
type Recorder interface {
	ConnectionOpened()
	ConnectionClosed()
	RecordDrop(reason string)
}

// DroppedEvent describes an inbound event refused by the identity check.
type DroppedEvent struct {
	ConnectionID     string
	PrincipalID      int64
	TenantID         *int64
	EventType        string
	Reason           string
	ClaimedTenantIDs []int64
	ClaimedUserIDs   []int64
}

// DropAuditor receives dropped events for the audit trail. It runs on the
// connection's read loop and should return promptly.
type DropAuditor interface {
	EventDropped(ctx context.Context, d DroppedEvent)
}

type HandlerFunc func(ctx context.Context, s *Session, ev Event)

type Option func(*ScopeRouter)

func WithLogger(l *slog.Logger) Option {
	return func(r *ScopeRouter) { r.logger = l }
}

func WithRecorder(rec Recorder) Option {
	return func(r *ScopeRouter) { r.recorder = rec }
}

func WithDropAuditor(a DropAuditor) Option {
	return func(r *ScopeRouter) { r.auditor = a }
}

// WithStatusGuard rejects handshakes from principals whose tenant is not
// operational.
func WithStatusGuard(g *tenant.Guard) Option {
	return func(r *ScopeRouter) { r.guard = g }
}

func WithSendBuffer(n int) Option {
	return func(r *ScopeRouter) {
		if n > 0 {
			r.sendBuffer = n
		}
	}
}

// ScopeRouter admits realtime connections into their isolation groups and
// applies the tenant policy to inbound events.
type ScopeRouter struct {
	resolver   TokenResolver
	hub        *Hub
	guard      *tenant.Guard
	logger     *slog.Logger
	recorder   Recorder
	auditor    DropAuditor
	sendBuffer int
	handlers   map[string]HandlerFunc
}

func NewScopeRouter(resolver TokenResolver, hub *Hub, opts ...Option) *ScopeRouter {
	r := &ScopeRouter{
		resolver:   resolver,
		hub:        hub,
		logger:     slog.Default(),
		sendBuffer: 64,
		handlers:   make(map[string]HandlerFunc),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// On registers the handler for an inbound event type. Handlers only ever
// run for admitted sessions and only after the identity check. Register
// all handlers before serving.
func (r *ScopeRouter) On(eventType string, h HandlerFunc) {
	r.handlers[eventType] = h
}

// Admit authenticates the handshake and joins the session to
// tenant:<tenantId> (when the principal has one) and
// user:<principalId>:notifications. On error nothing is registered.
func (r *ScopeRouter) Admit(ctx context.Context, hs Handshake) (*Session, error) {
	p, err := r.resolver.Resolve(hs.Token())
	if err != nil {
		r.logger.Warn("realtime handshake rejected", "remote_addr", hs.RemoteAddr, "error", err)
		return nil, err
	}
	if r.guard != nil && p.TenantID != nil {
		if err := r.guard.VerifyActiveTenant(ctx, *p.TenantID); err != nil {
			level := slog.LevelWarn
			var verr *tenant.TenantVerificationError
			if errors.As(err, &verr) {
				level = slog.LevelError
			}
			r.logger.Log(ctx, level, "realtime handshake rejected",
				"remote_addr", hs.RemoteAddr, "principal_id", p.ID, "tenant_id", *p.TenantID, "error", err)
			return nil, err
		}
	}

	s := newSession(uuid.NewString(), *p, r.sendBuffer)
	if p.TenantID != nil {
		r.hub.join(s, TenantGroup(*p.TenantID))
	}
	r.hub.join(s, UserGroup(p.ID))

	if r.recorder != nil {
		r.recorder.ConnectionOpened()
	}
	r.logger.Info("realtime session admitted",
		"connection_id", s.ID, "principal_id", p.ID, "role", p.Role, "groups", s.groups)
	return s, nil
}

// Release removes the session from every group. Call it exactly once when
// the connection ends.
func (r *ScopeRouter) Release(s *Session) {
	r.hub.leave(s)
	if r.recorder != nil {
		r.recorder.ConnectionClosed()
	}
	r.logger.Info("realtime session released", "connection_id", s.ID, "principal_id", s.Principal.ID)
}

// Dispatch checks an inbound event against the session identity and runs
// its handler. Events that claim another tenant or user, or whose claims do
// not parse, are logged and dropped without any reply to the client.
// Dispatch reports whether a handler ran.
func (r *ScopeRouter) Dispatch(ctx context.Context, s *Session, ev Event) bool {
	claims, err := readClaims(ev.Payload)
	if err != nil {
		r.drop(ctx, s, ev, DropMalformed, claims)
		return false
	}
	for _, id := range claims.TenantIDs {
		if _, err := tenant.RequireTenantID(&s.Principal, tenant.RefOf(id, tenant.SourcePayload)); err != nil {
			r.drop(ctx, s, ev, DropTenantMismatch, claims)
			return false
		}
	}
	if slices.ContainsFunc(claims.UserIDs, func(id int64) bool { return id != s.Principal.ID }) {
		r.drop(ctx, s, ev, DropUserMismatch, claims)
		return false
	}

	h, ok := r.handlers[ev.Type]
	if !ok {
		r.logger.Debug("realtime event unhandled", "connection_id", s.ID, "type", ev.Type)
		if r.recorder != nil {
			r.recorder.RecordDrop(DropUnhandled)
		}
		return false
	}
	h(ctx, s, ev)
	return true
}

func (r *ScopeRouter) drop(ctx context.Context, s *Session, ev Event, reason string, claims Claims) {
	r.logger.Warn("realtime event dropped",
		"connection_id", s.ID,
		"principal_id", s.Principal.ID,
		"type", ev.Type,
		"reason", reason,
		"claimed_tenant_ids", formatIDs(claims.TenantIDs),
		"claimed_user_ids", formatIDs(claims.UserIDs),
	)
	if r.recorder != nil {
		r.recorder.RecordDrop(reason)
	}
	if r.auditor != nil {
		r.auditor.EventDropped(ctx, DroppedEvent{
			ConnectionID:     s.ID,
			PrincipalID:      s.Principal.ID,
			TenantID:         s.Principal.TenantID,
			EventType:        ev.Type,
			Reason:           reason,
			ClaimedTenantIDs: claims.TenantIDs,
			ClaimedUserIDs:   claims.UserIDs,
		})
	}
}
