package auth

import (
	"encoding/json"
	"net/http"
	"strings"
)

// ErrorHandler renders an authentication or authorization failure.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

type Middleware struct {
	resolver *Resolver
	onError  ErrorHandler
}

func NewMiddleware(resolver *Resolver, onError ErrorHandler) *Middleware {
	if onError == nil {
		onError = func(w http.ResponseWriter, r *http.Request, err error) {
			writeError(w, http.StatusUnauthorized, "authentication required")
		}
	}
	return &Middleware{resolver: resolver, onError: onError}
}

// Authenticate resolves the bearer credential and stores the Principal in
// the request context. Requests without a valid credential stop here.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := m.resolver.Resolve(BearerToken(r.Header))
		if err != nil {
			m.onError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// BearerToken returns the credential of an "Authorization: Bearer" header,
// or "" when there is none.
func BearerToken(h http.Header) string {
	v := h.Get("Authorization")
	if len(v) > 7 && strings.EqualFold(v[:7], "Bearer ") {
		return strings.TrimSpace(v[7:])
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
