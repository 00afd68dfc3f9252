package app

import (
	"errors"
	"fmt"
)

// ErrNotConnected is reported when an operation needs an open session.
var ErrNotConnected = errors.New("no active connection")

// ErrConnection represents a database connection error.
type ErrConnection struct {
	Target string
	Cause  error
}

func (e *ErrConnection) Error() string {
	return fmt.Sprintf("connection error (%s): %v", e.Target, e.Cause)
}

func (e *ErrConnection) Unwrap() error {
	return e.Cause
}

// ErrQuery represents a query execution error.
type ErrQuery struct {
	Query string
	Cause error
}

func (e *ErrQuery) Error() string {
	return fmt.Sprintf("query error: %v", e.Cause)
}

func (e *ErrQuery) Unwrap() error {
	return e.Cause
}

// ErrTableNotFound is reported when the catalog has no table of that name.
type ErrTableNotFound struct {
	Table string
}

func (e *ErrTableNotFound) Error() string {
	return fmt.Sprintf("table %q does not exist in the database", e.Table)
}

// ErrUnexpected wraps a panic recovered from a driver call.
type ErrUnexpected struct {
	Op    string
	Value any
}

func (e *ErrUnexpected) Error() string {
	return fmt.Sprintf("unexpected error during %s: %v", e.Op, e.Value)
}

// ErrClosed is reported when a closed manager is asked to connect again.
var ErrClosed = errors.New("connection manager is closed")
