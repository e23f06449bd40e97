package realtime

import (
	"context"
	"fmt"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/nikhilbhutani/lmscore/internal/auth"
	"github.com/nikhilbhutani/lmscore/internal/models"
)

func TestBroadcastPreservesOrderPerSession(t *testing.T) {
	c := qt.New(t)
	hub := NewHub(quietLogger())
	a := newSession("a", auth.Principal{ID: 1, Role: models.RoleStudent, TenantID: int64p(4)}, 128)
	b := newSession("b", auth.Principal{ID: 2, Role: models.RoleStudent, TenantID: int64p(4)}, 128)
	hub.join(a, TenantGroup(4))
	hub.join(b, TenantGroup(4))

	for i := range 100 {
		c.Assert(hub.Emit(context.Background(), TenantGroup(4), Event{Type: fmt.Sprint(i)}), qt.IsNil)
	}
	for _, s := range []*Session{a, b} {
		got := pending(s)
		c.Assert(got, qt.HasLen, 100)
		for i, ev := range got {
			c.Assert(ev.Type, qt.Equals, fmt.Sprint(i))
		}
	}
}

func TestBroadcastTargetsGroupOnly(t *testing.T) {
	c := qt.New(t)
	hub := NewHub(quietLogger())
	a := newSession("a", auth.Principal{ID: 1, Role: models.RoleStudent, TenantID: int64p(4)}, 8)
	b := newSession("b", auth.Principal{ID: 2, Role: models.RoleStudent, TenantID: int64p(5)}, 8)
	hub.join(a, TenantGroup(4))
	hub.join(a, UserGroup(1))
	hub.join(b, TenantGroup(5))

	c.Assert(hub.Broadcast(UserGroup(1), Event{Type: "notice"}), qt.Equals, 1)
	c.Assert(hub.Broadcast(TenantGroup(6), Event{Type: "nobody"}), qt.Equals, 0)
	c.Assert(pending(a), qt.HasLen, 1)
	c.Assert(pending(b), qt.HasLen, 0)
}

func TestBroadcastEvictsSlowSession(t *testing.T) {
	c := qt.New(t)
	hub := NewHub(quietLogger())
	s := newSession("slow", auth.Principal{ID: 1, Role: models.RoleStudent, TenantID: int64p(4)}, 1)
	hub.join(s, TenantGroup(4))

	c.Assert(hub.Broadcast(TenantGroup(4), Event{Type: "1"}), qt.Equals, 1)
	c.Assert(hub.Broadcast(TenantGroup(4), Event{Type: "2"}), qt.Equals, 0)

	select {
	case <-s.Done():
	default:
		c.Fatal("slow session not evicted")
	}
	c.Assert(hub.Broadcast(TenantGroup(4), Event{Type: "3"}), qt.Equals, 0)
}
