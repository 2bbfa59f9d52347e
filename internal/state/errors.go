package state

import (
	"errors"
	"fmt"
)

var (
	// ErrStore marks any persistence failure surfaced by the store.
	ErrStore = errors.New("state store failure")
	// ErrInvalidStatus is returned when a caller writes a status the operation does not accept.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
	ErrSchemaMismatch = errors.New("schema version mismatch")
)

// Error describes a failed store operation.
type Error struct {
	Op  string
	ID  string
	Err error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.ID != "" {
		return fmt.Sprintf("state %s %q: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("state %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports ErrStore for every store error so callers can classify without errors.As.
func (e *Error) Is(target error) bool {
	return target == ErrStore
}

func storeError(op, id string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, ID: id, Err: err}
}
