package node

import "errors"

// StoreError represents a domain error from node store operations.
//
// These are storage-level errors (row not found, key conflict) as opposed to
// the business errors the namespace layer reports through event messages.
type StoreError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Path is the node path related to the error (if applicable)
	Path string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Path != "" {
		return e.Message + ": " + e.Path
	}
	return e.Message
}

// ErrorCode represents the category of a node store error.
type ErrorCode int

const (
	// ErrNotFound indicates the requested row doesn't exist
	ErrNotFound ErrorCode = iota

	// ErrAlreadyExists indicates a row with the key already exists
	ErrAlreadyExists

	// ErrInvalidArgument indicates invalid parameters were provided
	// Examples: empty container, container without trailing slash
	ErrInvalidArgument

	// ErrIOError indicates an I/O error from the backing store
	ErrIOError

	// ErrUnavailable indicates the backing store cannot serve requests
	ErrUnavailable
)

// NotFound builds the standard not-found error for a node path.
func NotFound(path string) *StoreError {
	return &StoreError{Code: ErrNotFound, Message: "node not found", Path: path}
}

// IsNotFound reports whether err is a StoreError with ErrNotFound.
func IsNotFound(err error) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Code == ErrNotFound
}
