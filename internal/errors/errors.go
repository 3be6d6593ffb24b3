package errors

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
)

// Common error types for the warehouse client
var (
	// Session errors
	ErrSessionExpired = errors.New("session expired")
	ErrNotLoggedIn    = errors.New("not logged in")
	ErrCorruptSession = errors.New("corrupt stored session")
	ErrRefreshFailed  = errors.New("token refresh failed")

	// Request errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrMaintenance  = errors.New("server under maintenance")
	ErrNetwork      = errors.New("network error")
	ErrValidation   = errors.New("validation failed")
	ErrServer       = errors.New("server error")
	ErrBadResponse  = errors.New("unexpected response")

	// Client side errors
	ErrInvalidInput = errors.New("invalid input")
	ErrStorage      = errors.New("storage error")

	// General errors
	ErrNotFound    = errors.New("not found")
	ErrInternal    = errors.New("internal error")
	ErrUnsupported = errors.New("unsupported operation")
)

// Wrap annotates err with a message. It returns nil when err is nil.
func Wrap(err error, message string) error {
	return pkgerrors.Wrap(err, message)
}

// Wrapf annotates err with a formatted message. It returns nil when err is nil.
func Wrapf(err error, format string, args ...interface{}) error {
	return pkgerrors.Wrapf(err, format, args...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
