package transform

import (
	"errors"
	"fmt"
)

// Kind classifies why an estimation or conversion failed.
type Kind int

const (
	// InvalidInput covers mismatched lengths, non-finite coordinates,
	// unknown modes and non-positive image sizes.
	InvalidInput Kind = iota + 1
	// NotEnoughPoints means fewer correspondences than the mode requires.
	NotEnoughPoints
	// SingularTransform means the point configuration does not determine
	// the transform (zero variance, rank-deficient system).
	SingularTransform
)

// Code returns the wire identifier for the kind.
func (k Kind) Code() string {
	switch k {
	case InvalidInput:
		return "INVALID_INPUT"
	case NotEnoughPoints:
		return "NOT_ENOUGH_POINTS"
	case SingularTransform:
		return "SINGULAR_TRANSFORM"
	default:
		return "UNKNOWN"
	}
}

func (k Kind) String() string {
	return k.Code()
}

// Error is the failure variant of every operation in this package.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind.Code(), e.Message)
}

func newError(kind Kind, format string, v ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, v...)}
}

// Errorf returns an *Error of the given kind. Callers that validate
// transform inputs themselves use it to report failures in the same taxonomy.
func Errorf(kind Kind, format string, v ...interface{}) error {
	return newError(kind, format, v...)
}

// KindOf extracts the Kind from err, if err wraps an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsKind reports whether err wraps an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
