package errors

import (
	"errors"
	"fmt"
)

// Common error types for the connect server
var (
	// Primary session errors
	ErrNotAuthenticated = errors.New("no primary session")
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionExpired   = errors.New("session expired")

	// Secondary connection flow errors
	ErrNoPendingGrant       = errors.New("no pending secondary grant")
	ErrInvalidState         = errors.New("invalid state parameter")
	ErrTokenExchangeFailed  = errors.New("token exchange failed")
	ErrAuthorizationExpired = errors.New("authorization code expired or already used")

	// ErrIdentityDrift is fatal: the primary session was replaced while a
	// secondary OAuth flow was in flight. Callers must surface this
	// prominently and must not persist anything.
	ErrIdentityDrift = errors.New("security violation: identity drift detected")

	// Grant errors
	ErrGrantNotFound            = errors.New("secondary grant not found")
	ErrNoRefreshToken           = errors.New("grant has no refresh token")
	ErrReauthenticationRequired = errors.New("reauthentication required")

	// Metrics errors
	ErrInvalidDateExpression = errors.New("invalid date expression")
	ErrNetworkTimeout        = errors.New("network timeout")

	// General errors
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
