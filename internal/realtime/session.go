package realtime

import (
	"slices"
	"sync"

	"github.com/nikhilbhutani/lmscore/internal/auth"
)

// Session is an admitted realtime connection. Its Principal is fixed at
// admission and never changes for the life of the connection.
type Session struct {
	ID        string
	Principal auth.Principal

	groups    []Group
	send      chan Event
	done      chan struct{}
	closeOnce sync.Once
}

func newSession(id string, p auth.Principal, buffer int) *Session {
	return &Session{
		ID:        id,
		Principal: p,
		send:      make(chan Event, buffer),
		done:      make(chan struct{}),
	}
}

func (s *Session) Groups() []Group {
	return slices.Clone(s.groups)
}

// Outbound delivers events in the order they were broadcast.
func (s *Session) Outbound() <-chan Event { return s.send }

// Done is closed when the session has been released or evicted.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// enqueue never blocks. A full buffer means the client is not keeping up.
func (s *Session) enqueue(ev Event) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- ev:
		return true
	default:
		return false
	}
}
