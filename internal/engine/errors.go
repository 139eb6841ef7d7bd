package engine

import (
	"errors"
	"fmt"
)

// ErrStorageUnavailable matches every *StorageUnavailableError.
var ErrStorageUnavailable = errors.New("storage unavailable")

// StorageUnavailableError is returned when a unit of work kept conflicting
// until the retry budget ran out. The outcome was not applied.
type StorageUnavailableError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *StorageUnavailableError) Error() string {
	return fmt.Sprintf("%s: storage unavailable after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *StorageUnavailableError) Unwrap() error { return e.Err }

func (e *StorageUnavailableError) Is(target error) bool {
	return target == ErrStorageUnavailable
}
