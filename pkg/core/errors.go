package core

import (
	"errors"
	"fmt"
)

// Predefined errors for common failure scenarios.
var (
	// ErrNotFound indicates that a requested memory id is absent from the
	// index or storage.
	ErrNotFound = errors.New("memory not found")

	// ErrDuplicateID indicates an index insert collision. This should not
	// occur under correct id generation and is a fatal programming error
	// when triggered.
	ErrDuplicateID = errors.New("duplicate memory id")

	// ErrDegenerateVector indicates a zero-magnitude vector in a
	// similarity computation.
	ErrDegenerateVector = errors.New("zero-magnitude embedding vector")

	// ErrPersistence indicates that a storage write failed.
	ErrPersistence = errors.New("storage operation failed")

	// ErrProvider indicates that an embedding or analysis provider failed.
	ErrProvider = errors.New("provider operation failed")

	// ErrInvalidInput indicates that the provided input is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig indicates that the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// MemoryError wraps errors with operation context.
//
// It records which operation failed and, when relevant, the offending
// memory id, making failures attributable without parsing messages.
type MemoryError struct {
	// Op is the name of the operation that failed.
	Op string

	// ID is the memory id involved in the failure, if any.
	ID string

	// Err is the underlying error.
	Err error
}

// Error returns a formatted error message.
//
// The format is "engram: <Op>: <Err>", with the memory id included when set.
func (e *MemoryError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("engram: %s: id %s: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("engram: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *MemoryError) Unwrap() error {
	return e.Err
}

// NewMemoryError creates a new MemoryError wrapping the given error.
//
// If err is nil, returns nil, which allows safe unconditional wrapping.
func NewMemoryError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &MemoryError{Op: op, Err: err}
}

// NewMemoryIDError creates a new MemoryError carrying the offending id.
//
// If err is nil, returns nil.
func NewMemoryIDError(op, id string, err error) error {
	if err == nil {
		return nil
	}
	return &MemoryError{Op: op, ID: id, Err: err}
}
