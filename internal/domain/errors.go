package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every *Error unwraps to exactly one of these, so callers can branch
// on the kind with errors.Is while still reading the specific Code.
var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrSalesWindowClosed = errors.New("ticket sales window is closed")
	ErrUnavailable       = errors.New("storage unavailable")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidInput      = errors.New("invalid input")
)

// Error is a rejection carrying a machine-readable code and a human-readable message.
type Error struct {
	Code    string
	Message string
	kind    error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.kind }

func newError(kind error, code, message string) *Error {
	return &Error{Code: code, Message: message, kind: kind}
}

// Sentinel rejections.
var (
	ErrEventNotFound        = newError(ErrNotFound, "event_not_found", "event not found")
	ErrTierNotFound         = newError(ErrNotFound, "tier_not_found", "ticket tier not found")
	ErrRegistrationNotFound = newError(ErrNotFound, "registration_not_found", "registration not found")
	ErrUserNotFound         = newError(ErrNotFound, "user_not_found", "user not found")

	ErrAlreadyRegistered    = newError(ErrConflict, "already_registered", "attendee already has an active registration for this event")
	ErrDuplicateActive      = newError(ErrConflict, "duplicate_active", "an active registration already exists for this attendee and event")
	ErrAlreadyCancelled     = newError(ErrConflict, "already_cancelled", "registration is already cancelled")
	ErrInsufficientCapacity = newError(ErrConflict, "insufficient_capacity", "not enough tickets remaining in this tier")
	ErrDuplicateEmail       = newError(ErrConflict, "duplicate_email", "email already in use")
	ErrCapacityOverflow     = newError(ErrConflict, "capacity_overflow", "release would exceed the tier's capacity")

	ErrStatusTransition = newError(ErrInvalidTransition, "invalid_transition", "status transition is not allowed")
	ErrSalesClosed      = newError(ErrSalesWindowClosed, "sales_window_closed", "ticket sales are not open for this tier")

	ErrStorageTimeout     = newError(ErrUnavailable, "storage_timeout", "storage operation timed out")
	ErrTransactionAborted = newError(ErrUnavailable, "transaction_aborted", "transaction aborted, retry the request")
	ErrInvalidCredentials = newError(ErrForbidden, "invalid_credentials", "invalid credentials")
	ErrNotPermitted       = newError(ErrForbidden, "forbidden", "not permitted to perform this action")
)

// InvalidInput returns an ErrInvalidInput rejection with the given message.
func InvalidInput(format string, args ...any) error {
	return newError(ErrInvalidInput, "invalid_input", fmt.Sprintf(format, args...))
}

// Wrap annotates cause with a sentinel so errors.Is matches both.
func Wrap(sentinel *Error, cause error) error {
	if cause == nil {
		return sentinel
	}
	return &wrapped{sentinel: sentinel, cause: cause}
}

type wrapped struct {
	sentinel *Error
	cause    error
}

func (w *wrapped) Error() string { return w.sentinel.Message + ": " + w.cause.Error() }

func (w *wrapped) Unwrap() []error { return []error{w.sentinel, w.cause} }

// CodeOf returns the code of the first *Error in err's chain, or "internal_error".
func CodeOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	if errors.Is(err, ErrInvalidInput) {
		return "invalid_input"
	}
	return "internal_error"
}
