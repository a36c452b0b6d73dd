package database

import (
	"errors"
	"fmt"
)

var (
	// ErrDBClosed is returned when trying to operate on a closed database
	ErrDBClosed = errors.New("database is closed")

	// ErrKeyNotFound is returned when a key doesn't exist in the database
	ErrKeyNotFound = errors.New("key not found")

	// ErrDBNotOpen is returned by CloseDB for a name that was never opened
	ErrDBNotOpen = errors.New("database not open")

	// ErrUnknownBackend is returned for a backend name with no implementation
	ErrUnknownBackend = errors.New("unknown database backend")
)

// UnknownOpError reports a BatchOperation with an unsupported type.
func UnknownOpError(t BatchOpType) error {
	return fmt.Errorf("unknown batch operation type: %d", t)
}
