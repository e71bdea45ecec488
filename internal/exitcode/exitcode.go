// Package exitcode defines exit codes for the CLI.
package exitcode

import (
	"errors"

	"tasker/internal/apierr"
)

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, not found, rejected input).
	UserError = 1

	// AuthError indicates rejected credentials or a missing login.
	AuthError = 2

	// BackendError indicates a backend/API/network error.
	BackendError = 3

	// SessionExpired indicates the session was ended by a failed refresh
	// and the user has to log in again.
	SessionExpired = 4
)

// FromError maps a classified error to an exit code.
func FromError(err error) int {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, apierr.ErrSessionExpired):
		return SessionExpired
	case errors.Is(err, apierr.ErrAuthentication), errors.Is(err, apierr.ErrUnauthorized):
		return AuthError
	case errors.Is(err, apierr.ErrValidation):
		return UserError
	default:
		return BackendError
	}
}
