package realtime

import (
	"context"
	"log/slog"
	"sync"
)

// Emitter sends a server-initiated event to every member of a group.
type Emitter interface {
	Emit(ctx context.Context, g Group, ev Event) error
}

// Hub is the in-process group registry.
type Hub struct {
	mu     sync.RWMutex
	groups map[Group]map[*Session]struct{}

	// fanout serializes Broadcast so every session sees events in emission
	// order.
	fanout sync.Mutex
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{groups: make(map[Group]map[*Session]struct{}), logger: logger}
}

func (h *Hub) join(s *Session, g Group) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.groups[g]
	if !ok {
		members = make(map[*Session]struct{})
		h.groups[g] = members
	}
	members[s] = struct{}{}
	s.groups = append(s.groups, g)
}

func (h *Hub) leave(s *Session) {
	h.mu.Lock()
	for _, g := range s.groups {
		members := h.groups[g]
		delete(members, s)
		if len(members) == 0 {
			delete(h.groups, g)
		}
	}
	h.mu.Unlock()
	s.close()
}

// Broadcast queues ev for every member of g and returns how many sessions
// accepted it. Sessions whose buffer is full are evicted.
func (h *Hub) Broadcast(g Group, ev Event) int {
	h.fanout.Lock()
	defer h.fanout.Unlock()

	h.mu.RLock()
	members := make([]*Session, 0, len(h.groups[g]))
	for s := range h.groups[g] {
		members = append(members, s)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, s := range members {
		if s.enqueue(ev) {
			delivered++
			continue
		}
		h.logger.Warn("realtime session evicted", "connection_id", s.ID, "group", g)
		s.close()
	}
	return delivered
}

// Emit implements Emitter for a single node.
func (h *Hub) Emit(_ context.Context, g Group, ev Event) error {
	h.Broadcast(g, ev)
	return nil
}

// Members returns the number of sessions in g.
func (h *Hub) Members(g Group) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[g])
}
