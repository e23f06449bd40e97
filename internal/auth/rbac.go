package auth

import (
	"errors"
	"net/http"

	"github.com/nikhilbhutani/lmscore/internal/models"
)

// ErrRoleNotPermitted is returned when the principal's role is not allowed
// on a route. It is a coarse gate; tenant scoping is enforced separately.
var ErrRoleNotPermitted = errors.New("role not permitted")

type RoleGate struct {
	onError ErrorHandler
}

func NewRoleGate(onError ErrorHandler) *RoleGate {
	if onError == nil {
		onError = func(w http.ResponseWriter, r *http.Request, err error) {
			writeError(w, http.StatusForbidden, "access denied")
		}
	}
	return &RoleGate{onError: onError}
}

func (g *RoleGate) Require(allowed ...models.Role) func(http.Handler) http.Handler {
	set := make(map[models.Role]struct{}, len(allowed))
	for _, r := range allowed {
		set[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			p := PrincipalFromContext(req.Context())
			if p == nil {
				g.onError(w, req, authError("no principal in context", nil))
				return
			}
			if _, ok := set[p.Role]; !ok {
				g.onError(w, req, ErrRoleNotPermitted)
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}
