package types

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrRoleNotFound     = errors.New("role not assigned")
	ErrProfileNotFound  = errors.New("profile not found")
	ErrDetailsNotFound  = errors.New("verification details not found")
	ErrDocumentNotFound = errors.New("document not found")
	ErrRequestNotFound  = errors.New("food request not found")

	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrAccountNotConfirmed = errors.New("account has not been confirmed")
	ErrUnauthenticated     = errors.New("not signed in")

	ErrForbidden            = errors.New("forbidden")
	ErrVerificationRequired = errors.New("verification required")
	ErrVerificationLocked   = errors.New("approved details cannot be changed")

	// ErrRequestUnavailable is returned when a conditional transition lost
	// to a concurrent writer or the request already moved on.
	ErrRequestUnavailable  = errors.New("this request is no longer available")
	ErrInvalidTransition   = errors.New("invalid request status transition")
	ErrRequestNotDeletable = errors.New("only pending requests can be deleted")
)

// ValidationError carries per-field messages. It is returned before any
// network call is made.
type ValidationError struct {
	FieldErrors map[string]string
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.FieldErrors))
	for field := range e.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+e.FieldErrors[field])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidationError returns nil when there are no field errors so callers
// can return it directly.
func NewValidationError(fieldErrors map[string]string) error {
	if len(fieldErrors) == 0 {
		return nil
	}
	return &ValidationError{FieldErrors: fieldErrors}
}

func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
