package internalerr

import "errors"

// Sentinel errors for the engine's failure taxonomy. Logical failure
// (a goal being false) is never an error; it is a result shape.
var (
	ErrNoActiveReality  = errors.New("no active reality")
	ErrRealityNotFound  = errors.New("reality not found")
	ErrRecursionLimit   = errors.New("recursion limit exceeded")
	ErrSolutionLimit    = errors.New("solution limit exceeded")
	ErrDomainViolation  = errors.New("state outside declared state space")
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("not found")
	ErrDuplicate        = errors.New("duplicate entry")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidConfig    = errors.New("invalid configuration")
)
