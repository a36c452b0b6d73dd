package eventdb

import (
	"errors"
	"fmt"
)

var (
	// Configuration errors
	ErrInvalidDriver       = errors.New("unsupported database driver")
	ErrMissingHost         = errors.New("database host is required")
	ErrMissingDatabase     = errors.New("database name is required")
	ErrMissingUsername     = errors.New("database username is required")
	ErrInvalidPort         = errors.New("invalid database port")
	ErrInvalidMaxOpenConns = errors.New("max open connections must be >= 0")
	ErrInvalidMaxIdleConns = errors.New("max idle connections must be >= 0 and <= max open connections")
	ErrInvalidTimeout      = errors.New("timeout must be positive")

	// ErrDatabaseClosed is returned after Close.
	ErrDatabaseClosed = errors.New("database connection is closed")

	// ErrOfferIDRange is returned for offer ids the BIGINT column cannot hold.
	ErrOfferIDRange = errors.New("offer id out of journal range")
)

// OpError ties a failure to the journal operation that produced it.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("eventdb %s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

func opError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Err: err}
}
