package auth

import "fmt"

// AuthenticationError reports a missing, invalid, expired or malformed
// credential. Callers respond by asking the client to re-authenticate.
type AuthenticationError struct {
	Reason string
	Err    error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Err)
	}
	return "authentication failed: " + e.Reason
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

func authError(reason string, err error) error {
	return &AuthenticationError{Reason: reason, Err: err}
}
