package domain

import "errors"

// Sentinel errors returned by the engine and the graph store adapters.
// Callers classify with errors.Is; the engine never retries and never
// swallows a store error.
var (
	// ErrNotFound indicates the requested root vertex does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a vertex with the same identity key exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrDataIntegrity indicates an entity invariant is violated, e.g. a post
	// with zero or multiple submitters. It signals write-path corruption and
	// is surfaced rather than patched over.
	ErrDataIntegrity = errors.New("data integrity violation")

	// ErrStoreUnavailable indicates a transient graph store failure. Retry
	// policy belongs to the caller, not the engine.
	ErrStoreUnavailable = errors.New("graph store unavailable")

	// ErrInvalidRange indicates pagination bounds failed validation. It is
	// surfaced before any traversal executes.
	ErrInvalidRange = errors.New("invalid pagination range")

	// ErrClosureTooLarge indicates a closure expansion hit the configured
	// visited ceiling, which points at pathological fan-in data.
	ErrClosureTooLarge = errors.New("inheritance closure exceeds visited ceiling")
)

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// StoreError wraps a backend failure so that errors.Is(err,
// ErrStoreUnavailable) holds while the underlying cause stays inspectable.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

// NewStoreError wraps err as a StoreError. It returns nil if err is nil.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
