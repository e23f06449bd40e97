package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/nikhilbhutani/lmscore/internal/auth"
	"github.com/nikhilbhutani/lmscore/internal/realtime"
	"github.com/nikhilbhutani/lmscore/internal/tenant"
)

type UserChecker interface {
	UserExists(ctx context.Context, pred tenant.Predicate, userID int64) (bool, error)
}

type NotificationHandler struct {
	users   UserChecker
	emitter realtime.Emitter
	onError auth.ErrorHandler
}

func NewNotificationHandler(users UserChecker, emitter realtime.Emitter, onError auth.ErrorHandler) *NotificationHandler {
	return &NotificationHandler{users: users, emitter: emitter, onError: onError}
}

type notifyRequest struct {
	// UserID targets one user's notifications group; zero broadcasts to the
	// whole tenant.
	UserID  int64           `json:"userId"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (h *NotificationHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req notifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Type == "" || req.UserID < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "type is required and userId must be positive"})
		return
	}

	pred, err := scopedPredicate(r, nil)
	if err != nil {
		h.onError(w, r, err)
		return
	}

	group := realtime.TenantGroup(pred.TenantID())
	if req.UserID > 0 {
		ok, err := h.users.UserExists(r.Context(), pred, req.UserID)
		if err != nil {
			h.onError(w, r, err)
			return
		}
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
			return
		}
		group = realtime.UserGroup(req.UserID)
	}

	ev := realtime.Event{Type: req.Type, Payload: req.Payload}
	if err := h.emitter.Emit(r.Context(), group, ev); err != nil {
		h.onError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"group": string(group)})
}
