package realtime

import (
	"net/http"
	"net/url"

	"github.com/nikhilbhutani/lmscore/internal/auth"
)

// Handshake carries every place a realtime client may put its credential.
type Handshake struct {
	// Auth is the "auth" object of the client's first frame.
	Auth       map[string]any
	Query      url.Values
	Header     http.Header
	RemoteAddr string
}

// Token returns the credential from the auth payload, the "token" query
// parameter or the bearer header, checked in that order. Empty values count
// as absent.
func (h Handshake) Token() string {
	if t, ok := h.Auth["token"].(string); ok && t != "" {
		return t
	}
	if t := h.Query.Get("token"); t != "" {
		return t
	}
	return auth.BearerToken(h.Header)
}
