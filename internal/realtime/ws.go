package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const (
	writeTimeout = 5 * time.Second
	readLimit    = 64 << 10
)

type HandlerConfig struct {
	AllowedOrigins   []string
	HandshakeTimeout time.Duration
}

// Handler is the websocket endpoint. The client's first frame must be
// {"auth": {...}} (possibly {}) and is read before the connection is
// admitted; nothing else is read or written until admission succeeds.
type Handler struct {
	router *ScopeRouter
	cfg    HandlerConfig
	logger *slog.Logger
}

func NewHandler(router *ScopeRouter, cfg HandlerConfig, logger *slog.Logger) *Handler {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{router: router, cfg: cfg, logger: logger}
}

type handshakeFrame struct {
	Auth map[string]any `json:"auth"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	opts := &websocket.AcceptOptions{}
	if len(h.cfg.AllowedOrigins) > 0 {
		opts.OriginPatterns = h.cfg.AllowedOrigins
	}
	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		h.logger.Debug("websocket accept failed", "error", err)
		return
	}
	conn.SetReadLimit(readLimit)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var frame handshakeFrame
	hctx, hcancel := context.WithTimeout(ctx, h.cfg.HandshakeTimeout)
	err = wsjson.Read(hctx, conn, &frame)
	hcancel()
	if err != nil {
		_ = conn.Close(websocket.StatusPolicyViolation, "handshake required")
		return
	}

	s, err := h.router.Admit(ctx, Handshake{
		Auth:       frame.Auth,
		Query:      r.URL.Query(),
		Header:     r.Header,
		RemoteAddr: r.RemoteAddr,
	})
	if err != nil {
		_ = conn.Close(websocket.StatusPolicyViolation, "authentication required")
		return
	}
	defer h.router.Release(s)

	ready, _ := NewEvent("ready", map[string]any{"connectionId": s.ID, "groups": s.Groups()})
	if err := h.write(ctx, conn, ready); err != nil {
		return
	}

	readErr := make(chan error, 1)
	go h.readLoop(ctx, conn, s, readErr)

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "closed")
			return
		case <-readErr:
			_ = conn.Close(websocket.StatusNormalClosure, "closed")
			return
		case <-s.Done():
			_ = conn.Close(websocket.StatusTryAgainLater, "too slow")
			return
		case ev := <-s.Outbound():
			if err := h.write(ctx, conn, ev); err != nil {
				_ = conn.Close(websocket.StatusNormalClosure, "write_failed")
				return
			}
		}
	}
}

func (h *Handler) write(ctx context.Context, conn *websocket.Conn, ev Event) error {
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(wctx, conn, ev)
}

// readLoop is the only reader after admission. Frames that are not valid
// events are dropped like any other refused event.
func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, s *Session, readErr chan<- error) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			readErr <- err
			return
		}
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil || ev.Type == "" {
			h.router.drop(ctx, s, Event{}, DropMalformed, Claims{})
			continue
		}
		h.router.Dispatch(ctx, s, ev)
	}
}
