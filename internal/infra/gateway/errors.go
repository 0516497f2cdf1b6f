package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig means no credential is configured at all.
	ErrConfig = errors.New("payment gateway secret key is not configured")
	// ErrUnauthorized means the configured credential is structurally a
	// public key. Caught locally, before any network round trip.
	ErrUnauthorized = errors.New("payment gateway credential is a public key, secret key required")
)

// Error is a typed gateway failure. Transient errors (timeouts, connect
// failures, 5xx) are retried by the client up to its policy; permanent
// ones (4xx, malformed responses) surface immediately.
type Error struct {
	Call       string // "initialize" | "verify"
	StatusCode int    // 0 for transport-level failures
	Message    string // provider message when available, never the credential
	Transient  bool
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("gateway %s: status %d: %s", e.Call, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gateway %s: %s", e.Call, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Temporary reports whether retrying the same call may succeed.
func (e *Error) Temporary() bool { return e.Transient }

func transient(call string, err error, msg string) *Error {
	return &Error{Call: call, Message: msg, Transient: true, Err: err}
}

func permanent(call string, status int, msg string) *Error {
	return &Error{Call: call, StatusCode: status, Message: msg}
}
