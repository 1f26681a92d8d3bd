package stats

import "errors"

var (
	// ErrInvalidInput indicates the caller supplied a malformed activity
	// event (negative counter, zero ID, zero date).
	ErrInvalidInput = errors.New("invalid input")
	// ErrStorageUnavailable indicates the database rejected the write after
	// retries were exhausted.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
