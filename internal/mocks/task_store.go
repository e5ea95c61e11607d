package mocks

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/taskhub-api/internal/domain"
	"github.com/phrazzld/taskhub-api/internal/store"
)

// MockTaskStore is an in-memory store.TaskStore. It orders listings like the
// PostgreSQL store and copies tasks in and out, so callers cannot mutate
// stored rows by accident. WithTx returns the same store: writes are not
// rolled back.
type MockTaskStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.Task

	// Function fields override the default behavior when set.
	GetByIDFn func(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	FindFn    func(ctx context.Context, filter store.TaskFilter, page store.Page) ([]*domain.Task, error)

	// Errors returned by the corresponding method when non-nil.
	GetByIDErr        error
	FindErr           error
	CountErr          error
	CreateErr         error
	CreateMultipleErr error
	UpdateErr         error
	DeleteErr         error
	DeleteWhereErr    error

	// Calls counts invocations per method name.
	Calls map[string]int
}

var _ store.TaskStore = (*MockTaskStore)(nil)

// NewMockTaskStore creates an empty store.
func NewMockTaskStore() *MockTaskStore {
	return &MockTaskStore{
		tasks: make(map[uuid.UUID]*domain.Task),
		Calls: make(map[string]int),
	}
}

// Seed inserts tasks directly, bypassing error injection and call counting.
func (m *MockTaskStore) Seed(tasks ...*domain.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range tasks {
		m.tasks[t.ID] = cloneTask(t)
	}
}

// Len returns the number of stored tasks.
func (m *MockTaskStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Get returns a copy of a stored task without counting a call.
func (m *MockTaskStore) Get(id uuid.UUID) (*domain.Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, false
	}
	return cloneTask(t), true
}

func (m *MockTaskStore) record(method string) {
	m.Calls[method]++
}

// GetByID implements store.TaskStore.
func (m *MockTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("GetByID")

	if m.GetByIDErr != nil {
		return nil, m.GetByIDErr
	}
	t, ok := m.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return cloneTask(t), nil
}

// Find implements store.TaskStore.
func (m *MockTaskStore) Find(ctx context.Context, filter store.TaskFilter, page store.Page) ([]*domain.Task, error) {
	if m.FindFn != nil {
		return m.FindFn(ctx, filter, page)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Find")

	if m.FindErr != nil {
		return nil, m.FindErr
	}

	matched := m.match(filter)
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return bytes.Compare(a.ID[:], b.ID[:]) > 0
	})

	if page.Offset > 0 {
		if page.Offset >= len(matched) {
			matched = matched[:0]
		} else {
			matched = matched[page.Offset:]
		}
	}
	if page.Limit > 0 && page.Limit < len(matched) {
		matched = matched[:page.Limit]
	}

	out := make([]*domain.Task, 0, len(matched))
	for _, t := range matched {
		out = append(out, cloneTask(t))
	}
	return out, nil
}

// Count implements store.TaskStore.
func (m *MockTaskStore) Count(ctx context.Context, filter store.TaskFilter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Count")

	if m.CountErr != nil {
		return 0, m.CountErr
	}
	return len(m.match(filter)), nil
}

// Create implements store.TaskStore.
func (m *MockTaskStore) Create(ctx context.Context, task *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Create")

	if m.CreateErr != nil {
		return m.CreateErr
	}
	if _, exists := m.tasks[task.ID]; exists {
		return fmt.Errorf("%w: task %s", store.ErrDuplicate, task.ID)
	}
	m.tasks[task.ID] = cloneTask(task)
	return nil
}

// CreateMultiple implements store.TaskStore. Either every task is stored
// or none is.
func (m *MockTaskStore) CreateMultiple(ctx context.Context, tasks []*domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("CreateMultiple")

	if m.CreateMultipleErr != nil {
		return m.CreateMultipleErr
	}
	for _, t := range tasks {
		if _, exists := m.tasks[t.ID]; exists {
			return fmt.Errorf("%w: task %s", store.ErrDuplicate, t.ID)
		}
	}
	for _, t := range tasks {
		m.tasks[t.ID] = cloneTask(t)
	}
	return nil
}

// Update implements store.TaskStore. CreatedAt is never overwritten.
func (m *MockTaskStore) Update(ctx context.Context, task *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Update")

	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	existing, ok := m.tasks[task.ID]
	if !ok {
		return store.ErrTaskNotFound
	}
	updated := cloneTask(task)
	updated.CreatedAt = existing.CreatedAt
	m.tasks[task.ID] = updated
	return nil
}

// Delete implements store.TaskStore.
func (m *MockTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Delete")

	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	if _, ok := m.tasks[id]; !ok {
		return store.ErrTaskNotFound
	}
	delete(m.tasks, id)
	return nil
}

// DeleteWhere implements store.TaskStore.
func (m *MockTaskStore) DeleteWhere(ctx context.Context, filter store.TaskFilter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("DeleteWhere")

	if m.DeleteWhereErr != nil {
		return 0, m.DeleteWhereErr
	}
	if filter.IsZero() {
		return 0, fmt.Errorf("%w: refusing to delete without a filter", store.ErrInvalidEntity)
	}
	matched := m.match(filter)
	for _, t := range matched {
		delete(m.tasks, t.ID)
	}
	return int64(len(matched)), nil
}

// WithTx implements store.TaskStore.
func (m *MockTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return m
}

// match returns the stored tasks selected by filter. Callers hold mu.
func (m *MockTaskStore) match(filter store.TaskFilter) []*domain.Task {
	var parents map[uuid.UUID]struct{}
	if filter.ParentIDs != nil {
		parents = make(map[uuid.UUID]struct{}, len(filter.ParentIDs))
		for _, id := range filter.ParentIDs {
			parents[id] = struct{}{}
		}
	}

	out := []*domain.Task{}
	for _, t := range m.tasks {
		if filter.TopLevelOnly && t.ParentID != nil {
			continue
		}
		if parents != nil {
			if t.ParentID == nil {
				continue
			}
			if _, ok := parents[*t.ParentID]; !ok {
				continue
			}
		}
		if filter.UserID != nil && (t.UserID == nil || *t.UserID != *filter.UserID) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func cloneTask(t *domain.Task) *domain.Task {
	c := *t
	c.Description = clonePtr(t.Description)
	c.Remarks = clonePtr(t.Remarks)
	c.UserID = clonePtr(t.UserID)
	c.CreatedByUser = clonePtr(t.CreatedByUser)
	c.UpdatedAt = clonePtr(t.UpdatedAt)
	c.DueDate = clonePtr(t.DueDate)
	c.SubmissionDate = clonePtr(t.SubmissionDate)
	c.ReviewDate = clonePtr(t.ReviewDate)
	c.CompletionDate = clonePtr(t.CompletionDate)
	c.ParentID = clonePtr(t.ParentID)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
