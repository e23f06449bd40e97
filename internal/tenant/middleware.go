package tenant

import (
	"net/http"

	"github.com/nikhilbhutani/lmscore/internal/auth"
)

// DecisionRecorder receives one observation per isolation decision.
type DecisionRecorder interface {
	RecordDecision(outcome, reason string)
}

// Scoper runs extraction, the isolation check and the status guard for
// every request and stores the resulting Scope in the request context.
type Scoper struct {
	guard    *Guard
	recorder DecisionRecorder
	onError  auth.ErrorHandler
}

func NewScoper(guard *Guard, recorder DecisionRecorder, onError auth.ErrorHandler) *Scoper {
	return &Scoper{guard: guard, recorder: recorder, onError: onError}
}

func (s *Scoper) Scope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scope, err := s.resolve(r)
		if err != nil {
			s.onError(w, r, err)
			return
		}
		if s.recorder != nil {
			s.recorder.RecordDecision("allowed", "")
		}
		next.ServeHTTP(w, r.WithContext(WithScope(r.Context(), scope)))
	})
}

func (s *Scoper) resolve(r *http.Request) (Scope, error) {
	p := auth.PrincipalFromContext(r.Context())

	ref, err := ExtractTenantID(r, p)
	if err != nil {
		return Scope{}, err
	}
	scope, err := RequireTenantID(p, ref)
	if err != nil {
		return Scope{}, err
	}
	if !scope.Unrestricted {
		if err := s.guard.VerifyActiveTenant(r.Context(), scope.TenantID); err != nil {
			return Scope{}, err
		}
	}
	return scope, nil
}
