package domain

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// TaskStatus represents the workflow state of a task.
type TaskStatus string

// Possible task status values. They are persisted and serialized by name.
const (
	TaskStatusNotDone    TaskStatus = "NotDone"
	TaskStatusPending    TaskStatus = "Pending"
	TaskStatusInProgress TaskStatus = "InProgress"
	TaskStatusInReview   TaskStatus = "InReview"
	TaskStatusCompleted  TaskStatus = "Completed"
	TaskStatusClosed     TaskStatus = "Closed"
)

// Field length limits enforced on tasks.
const (
	MaxTaskNameLength    = 150
	MaxDescriptionLength = 500
	MaxRemarksLength     = 500
	MaxUserRefLength     = 100
)

// TaskStatuses lists every valid status in declaration order.
var TaskStatuses = []TaskStatus{
	TaskStatusNotDone,
	TaskStatusPending,
	TaskStatusInProgress,
	TaskStatusInReview,
	TaskStatusCompleted,
	TaskStatusClosed,
}

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	for _, known := range TaskStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Task is a single persisted task row. A task with a nil ParentID is a
// top-level task; otherwise it is a sub-task and never has children of its own.
type Task struct {
	ID             uuid.UUID
	Name           string
	Description    *string
	Remarks        *string
	Status         TaskStatus
	CreatedAt      time.Time
	UpdatedAt      *time.Time
	UserID         *string
	CreatedByUser  *string
	DueDate        *time.Time
	SubmissionDate *time.Time
	ReviewDate     *time.Time
	CompletionDate *time.Time
	IsComplete     bool
	ParentID       *uuid.UUID
}

// TaskTree is a top-level task together with its direct sub-tasks.
type TaskTree struct {
	Task     *Task
	SubTasks []*Task
}

// IsTopLevel reports whether the task has no parent.
func (t *Task) IsTopLevel() bool {
	return t.ParentID == nil
}

// Validate checks field constraints. A zero Status is accepted and means the
// default (Pending) will be applied by ApplyDefaults.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrInvalidID)
	}
	if t.Name == "" {
		return NewValidationError("task_name", "is required", nil)
	}
	if utf8.RuneCountInString(t.Name) > MaxTaskNameLength {
		return NewValidationError("task_name", "must be at most 150 characters", nil)
	}
	if t.Description != nil && utf8.RuneCountInString(*t.Description) > MaxDescriptionLength {
		return NewValidationError("description", "must be at most 500 characters", nil)
	}
	if t.Remarks != nil && utf8.RuneCountInString(*t.Remarks) > MaxRemarksLength {
		return NewValidationError("remarks", "must be at most 500 characters", nil)
	}
	if t.Status != "" && !t.Status.Valid() {
		return NewValidationError("status", "is not a recognised status", nil)
	}
	if t.UserID != nil && utf8.RuneCountInString(*t.UserID) > MaxUserRefLength {
		return NewValidationError("user_id", "must be at most 100 characters", nil)
	}
	if t.CreatedByUser != nil && utf8.RuneCountInString(*t.CreatedByUser) > MaxUserRefLength {
		return NewValidationError("created_by_user", "must be at most 100 characters", nil)
	}
	if t.ParentID != nil && *t.ParentID == t.ID {
		return NewValidationError("parent_task_id", "cannot reference the task itself", nil)
	}
	return nil
}

// ApplyDefaults fills in the default status.
func (t *Task) ApplyDefaults() {
	if t.Status == "" {
		t.Status = TaskStatusPending
	}
}

// NormalizeDates coerces every optional date on the task to UTC using AsUTC.
func (t *Task) NormalizeDates() {
	t.DueDate = AsUTCPtr(t.DueDate)
	t.SubmissionDate = AsUTCPtr(t.SubmissionDate)
	t.ReviewDate = AsUTCPtr(t.ReviewDate)
	t.CompletionDate = AsUTCPtr(t.CompletionDate)
	t.UpdatedAt = AsUTCPtr(t.UpdatedAt)
}
