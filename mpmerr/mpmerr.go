// Package mpmerr defines the error kinds surfaced by the particle-grid
// transfer engine (spec §7): DomainError, ResourceExhausted, InvalidConfig,
// and InternalInvariant.
package mpmerr

import "fmt"

// Kind classifies an Error so callers can branch on policy without string
// matching.
type Kind int

const (
	// DomainError: NaN/Inf in a deformation gradient, non-positive mass
	// during normalization, determinant collapse feeding an SVD. The
	// affected particle/cell is clamped or reset; the step continues.
	DomainError Kind = iota
	// ResourceExhausted: a sparse-grid block could not be committed.
	// Fatal, surfaced to the caller.
	ResourceExhausted
	// InvalidConfig: material parameters are out of physical range.
	// Reported at init; no auto-correction is attempted.
	InvalidConfig
	// InternalInvariant: a stencil escaped its allocated region, a
	// particle_count/particle-array mismatch was detected, or the
	// states encoding overflowed past max_num_rigid_bodies. Fatal.
	InternalInvariant
)

func (k Kind) String() string {
	switch k {
	case DomainError:
		return "DomainError"
	case ResourceExhausted:
		return "ResourceExhausted"
	case InvalidConfig:
		return "InvalidConfig"
	case InternalInvariant:
		return "InternalInvariant"
	default:
		return "UnknownError"
	}
}

// Error carries a Kind plus context. Cause may be nil.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
