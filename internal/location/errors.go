package location

import "errors"

type Code string

const (
	CodeUnsupported      Code = "unsupported"
	CodePermissionDenied Code = "permission_denied"
	CodeUnavailable      Code = "unavailable"
	CodeTimeout          Code = "timeout"
)

func (c Code) Valid() bool {
	switch c {
	case CodeUnsupported, CodePermissionDenied, CodeUnavailable, CodeTimeout:
		return true
	}
	return false
}

// Error is an acquisition failure. Errors compare equal by code, so
// errors.Is(err, ErrTimeout) works for any timeout.
type Error struct {
	Code Code
}

var (
	ErrUnsupported      = &Error{Code: CodeUnsupported}
	ErrPermissionDenied = &Error{Code: CodePermissionDenied}
	ErrUnavailable      = &Error{Code: CodeUnavailable}
	ErrTimeout          = &Error{Code: CodeTimeout}
)

func (e *Error) Error() string {
	switch e.Code {
	case CodeUnsupported:
		return "Geolocation is not supported on this device"
	case CodePermissionDenied:
		return "Location permission denied. Please enable location access."
	case CodeUnavailable:
		return "Location information is unavailable"
	case CodeTimeout:
		return "Location request timed out"
	}
	return "An unknown error occurred while getting location"
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// CodeOf returns the taxonomy code for err, or "" when err is not an
// acquisition error.
func CodeOf(err error) Code {
	var lerr *Error
	if errors.As(err, &lerr) {
		return lerr.Code
	}
	return ""
}
