package types

import "errors"

// Sentinel errors for the outcome taxonomy shared by every component.
// Callers branch with errors.Is rather than matching message text, so a
// missing row is always distinguishable from a storage fault.
var (
	// ErrNotFound indicates a referenced id does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument indicates a value outside a fixed enumeration or
	// an otherwise structurally invalid input (e.g. cross-project parenting)
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConflict is reserved for uniqueness races (e.g. duplicate
	// sequence id assignment); not produced in normal operation
	ErrConflict = errors.New("conflict")

	// ErrStorageUnavailable indicates a persistence layer failure.
	// It is never silently converted to ErrNotFound.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// IsNotFound reports whether err is (or wraps) ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidArgument reports whether err is (or wraps) ErrInvalidArgument
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}
