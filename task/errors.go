package task

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("task not found")
	ErrValidation        = errors.New("invalid task")
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrNoSnapshot is returned by a Repository that has never been saved to.
	ErrNoSnapshot = errors.New("no task snapshot")
	// ErrUnsupportedVersion is returned when a snapshot is newer than this build.
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")
)

// PersistenceError wraps a failed snapshot read or write.
type PersistenceError struct {
	Op  string // "load", "save" or "preserve"
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("task snapshot %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
