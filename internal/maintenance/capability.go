// Package maintenance issues the capability that unlocks tenant-unscoped
// store operations for trusted startup and maintenance entry points
// (seeding, bootstrap tooling). There is no process-wide switch: code that
// does not hold a Capability cannot bypass tenant scoping.
package maintenance

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/nikhilbhutani/lmscore/internal/auth"
)

var (
	// ErrRequestScope is returned when Enter is called with a context that
	// belongs to an authenticated request.
	ErrRequestScope = errors.New("maintenance capability cannot be granted inside request scope")

	ErrNoCapability = errors.New("maintenance capability required")
)

// Capability is only valid when obtained from Enter; a zero value fails
// Check.
type Capability struct {
	granted   bool
	reason    string
	grantedAt time.Time
}

// Enter grants a capability for the stated reason. The grant is logged and
// cannot be revoked; drop the value when the maintenance work is done.
func Enter(ctx context.Context, logger *slog.Logger, reason string) (*Capability, error) {
	if auth.PrincipalFromContext(ctx) != nil {
		return nil, ErrRequestScope
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, errors.New("maintenance capability requires a reason")
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Capability{granted: true, reason: reason, grantedAt: time.Now()}
	logger.Warn("tenant isolation bypass granted", "reason", reason, "granted_at", c.grantedAt)
	return c, nil
}

func (c *Capability) Reason() string {
	if c == nil {
		return ""
	}
	return c.reason
}

// Check returns ErrNoCapability unless c was granted by Enter.
func (c *Capability) Check() error {
	if c == nil || !c.granted {
		return ErrNoCapability
	}
	return nil
}
