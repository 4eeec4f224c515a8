package mcp

import (
	"errors"
	"fmt"

	"github.com/superemem/azwaryfocus/internal/domain/activity"
	"github.com/superemem/azwaryfocus/internal/domain/kanban"
	"github.com/superemem/azwaryfocus/internal/domain/project"
	"github.com/superemem/azwaryfocus/internal/domain/session"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
	err          error
}

func (e *APIError) Error() string {
	if e.RecoveryHint != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.RecoveryHint)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.err
}

// MapError maps domain errors to MCP error codes. Unknown errors map to nil.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	var remote *kanban.RemoteOperationError
	switch {
	case errors.Is(err, kanban.ErrNotAuthenticated), errors.Is(err, session.ErrNotAuthenticated):
		return &APIError{Code: "NOT_AUTHENTICATED", Message: "no authenticated session", RecoveryHint: "Sign in with azwary login", err: err}
	case errors.Is(err, kanban.ErrNoActiveProject):
		return &APIError{Code: "NO_ACTIVE_PROJECT", Message: "no project is open", RecoveryHint: "Call open_project first", err: err}
	case errors.Is(err, kanban.ErrEntityNotFound):
		return &APIError{Code: "NOT_FOUND", Message: "task or column not found on the open board", RecoveryHint: "Call get_board for current ids", err: err}
	case errors.Is(err, project.ErrProjectNotFound):
		return &APIError{Code: "PROJECT_NOT_FOUND", Message: "project not found", RecoveryHint: "Call list_projects", err: err}
	case errors.Is(err, kanban.ErrInvalidInput), errors.Is(err, project.ErrInvalidInput), errors.Is(err, activity.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error(), err: err}
	case errors.As(err, &remote):
		return &APIError{Code: "REMOTE_FAILURE", Message: remote.Message, Details: map[string]string{"operation": remote.Op}, RecoveryHint: "Retry later", err: err}
	default:
		return nil
	}
}

// toolError converts a domain error into the error returned from a tool handler.
func toolError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
