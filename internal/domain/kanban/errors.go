package kanban

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated indicates no authenticated gateway is available.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNoActiveProject indicates a mutation was requested with no project loaded.
	ErrNoActiveProject = errors.New("no active project")
	// ErrEntityNotFound indicates a referenced task or column is absent locally.
	ErrEntityNotFound = errors.New("entity not found")
	// ErrInvalidInput indicates invalid mutation input.
	ErrInvalidInput = errors.New("invalid input")
	// ErrReconciliationSkipped marks a confirmed remote change whose target
	// is no longer held locally. It is logged, never returned.
	ErrReconciliationSkipped = errors.New("reconciliation skipped")
)

// RemoteOperationError wraps a gateway failure with the backend message.
type RemoteOperationError struct {
	Op      string
	Message string
	Err     error
}

func (e *RemoteOperationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *RemoteOperationError) Unwrap() error {
	return e.Err
}

func remoteError(op string, err error) *RemoteOperationError {
	return &RemoteOperationError{Op: op, Message: err.Error(), Err: err}
}
