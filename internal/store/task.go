package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/taskhub-api/internal/domain"
)

// TaskFilter selects task rows. Every set field narrows the result; the zero
// value matches all tasks.
type TaskFilter struct {
	// TopLevelOnly restricts the result to tasks without a parent.
	TopLevelOnly bool

	// ParentIDs restricts the result to direct children of these tasks.
	// A nil slice means "no restriction"; an empty non-nil slice matches nothing.
	ParentIDs []uuid.UUID

	// UserID restricts the result to tasks owned by this user reference.
	UserID *string
}

// Page is an offset/limit window. A zero Limit means no limit.
type Page struct {
	Limit  int
	Offset int
}

// TaskStore defines the interface for task persistence. Implementations hold
// no business rules: hierarchy and timestamp policy live in the service layer.
//
// Listing methods return rows ordered by created_at DESC, id DESC.
type TaskStore interface {
	// GetByID retrieves a task by its ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// Find returns tasks matching the filter within the page window.
	// Returns an empty slice when nothing matches.
	Find(ctx context.Context, filter TaskFilter, page Page) ([]*domain.Task, error)

	// Count returns the number of tasks matching the filter.
	Count(ctx context.Context, filter TaskFilter) (int, error)

	// Create inserts a single task.
	Create(ctx context.Context, task *domain.Task) error

	// CreateMultiple inserts all tasks in one statement.
	CreateMultiple(ctx context.Context, tasks []*domain.Task) error

	// Update overwrites the mutable columns of an existing task.
	// Returns ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes a task by ID.
	// Returns ErrTaskNotFound if the task does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteWhere removes all tasks matching the filter and reports how many
	// rows were removed. An all-zero filter is rejected to avoid wiping the table.
	DeleteWhere(ctx context.Context, filter TaskFilter) (int64, error)

	// WithTx returns a TaskStore bound to the given transaction.
	WithTx(tx *sql.Tx) TaskStore
}

// IsZero reports whether the filter has no restrictions.
func (f TaskFilter) IsZero() bool {
	return !f.TopLevelOnly && f.ParentIDs == nil && f.UserID == nil
}
