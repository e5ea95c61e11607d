package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/taskhub-api/internal/domain"
	"github.com/phrazzld/taskhub-api/internal/store"
)

// Service errors callers check with errors.Is. The API layer maps each of
// them to a distinct HTTP status.
var (
	// ErrTaskNotFound indicates the requested task does not exist.
	ErrTaskNotFound = errors.New("task not found")

	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrTaskExists indicates a create supplied an id that is already taken.
	ErrTaskExists = errors.New("task already exists")

	// ErrParentTaskNotFound indicates a referenced parent task does not exist.
	// It is a validation error: the caller can fix the request.
	ErrParentTaskNotFound = fmt.Errorf("%w: parent task not found", domain.ErrValidation)

	// ErrHierarchyTooDeep indicates a change would nest a task below a sub-task.
	ErrHierarchyTooDeep = fmt.Errorf("%w: tasks may only be nested one level deep", domain.ErrValidation)

	// ErrInvalidCredentials covers both an unknown username and a wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrUsernameTaken indicates registration with a username already in use.
	ErrUsernameTaken = errors.New("username is already taken")
)

// Task operations, used as TaskServiceError.Operation and in logs.
const (
	OpRetrieve = "retrieving"
	OpCreate   = "creating"
	OpUpdate   = "updating"
	OpDelete   = "deleting"
)

// TaskServiceError wraps an unexpected store failure. Error returns only a
// generic message so the cause never reaches API clients; Unwrap exposes it
// to logs and errors.Is.
type TaskServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for TaskServiceError.
func (e *TaskServiceError) Error() string {
	return e.Message
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *TaskServiceError) Unwrap() error {
	return e.Err
}

// NewTaskServiceError creates a TaskServiceError for operation. Store
// not-found errors are translated to their service equivalents so they
// keep their meaning at the API boundary.
func NewTaskServiceError(operation string, err error) error {
	switch {
	case errors.Is(err, store.ErrTaskNotFound):
		return ErrTaskNotFound
	case errors.Is(err, store.ErrUserNotFound):
		return ErrUserNotFound
	case store.IsNotFoundError(err):
		// Any other missing row seen by the task service is a task.
		return ErrTaskNotFound
	}
	return &TaskServiceError{
		Operation: operation,
		Message:   fmt.Sprintf("an unexpected error occurred while %s tasks", operation),
		Err:       err,
	}
}

// IsTaskServiceError reports whether err is or wraps a TaskServiceError.
func IsTaskServiceError(err error) bool {
	var tse *TaskServiceError
	return errors.As(err, &tse)
}
