package provider

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of failure categories the provider client can
// report. Callers switch on the kind, never on message text.
type ErrorKind string

const (
	// KindInvalidRequest covers non-retryable 4xx responses.
	KindInvalidRequest ErrorKind = "invalid_request"
	// KindAuthorizationExpired means the authorization code was expired or
	// already used; the connection flow must be restarted.
	KindAuthorizationExpired ErrorKind = "authorization_expired"
	// KindUnauthorized means the provider rejected the credential (401, or a
	// rejected refresh token).
	KindUnauthorized ErrorKind = "unauthorized"
	// KindRateLimited means the provider returned 429; retryable.
	KindRateLimited ErrorKind = "rate_limited"
	// KindTransient covers 5xx and network errors; retryable.
	KindTransient ErrorKind = "transient"
	// KindTimeout means the bounded request timeout elapsed.
	KindTimeout ErrorKind = "timeout"
)

// Error is a tagged provider failure.
type Error struct {
	Kind    ErrorKind
	Status  int // HTTP status when one was received, 0 otherwise
	Message string
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("provider %s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("provider %s: %s", e.Kind, e.Message)
}

// Retryable reports whether the failure is eligible for bounded retry.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTransient, KindRateLimited, KindTimeout:
		return true
	}
	return false
}

// IsKind reports whether err carries a provider Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}

// kindFromStatus maps an HTTP status code to an error kind.
func kindFromStatus(status int) ErrorKind {
	switch {
	case status == 401:
		return KindUnauthorized
	case status == 429:
		return KindRateLimited
	case status >= 500:
		return KindTransient
	default:
		return KindInvalidRequest
	}
}
