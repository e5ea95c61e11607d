package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskhub-api/internal/domain"
	"github.com/phrazzld/taskhub-api/internal/pagination"
	"github.com/phrazzld/taskhub-api/internal/platform/logger"
	"github.com/phrazzld/taskhub-api/internal/redact"
	"github.com/phrazzld/taskhub-api/internal/store"
)

// TaskFields are the caller-supplied attributes of a task or sub-task.
// CreatedAt and UpdatedAt are always set by the service.
type TaskFields struct {
	Name           string            `json:"task_name"`
	Description    *string           `json:"description,omitempty"`
	Remarks        *string           `json:"remarks,omitempty"`
	Status         domain.TaskStatus `json:"status,omitempty"`
	UserID         *string           `json:"user_id,omitempty"`
	CreatedByUser  *string           `json:"created_by_user,omitempty"`
	DueDate        *time.Time        `json:"due_date,omitempty"`
	SubmissionDate *time.Time        `json:"submission_date,omitempty"`
	ReviewDate     *time.Time        `json:"review_date,omitempty"`
	CompletionDate *time.Time        `json:"completion_date,omitempty"`
	IsComplete     bool              `json:"is_complete"`
}

// CreateTaskCommand creates a task and, optionally, its sub-tasks.
type CreateTaskCommand struct {
	// ID is used when set; otherwise a new one is generated.
	ID uuid.UUID `json:"task_id"`
	TaskFields
	// ParentID creates the task as a sub-task of an existing top-level task.
	// It cannot be combined with SubTasks.
	ParentID *uuid.UUID  `json:"parent_task_id,omitempty"`
	SubTasks []TaskFields `json:"sub_tasks,omitempty"`
}

// SubTaskInput is one entry of an update's sub-task list. A zero ID, or an
// ID that does not exist, creates a new sub-task.
type SubTaskInput struct {
	ID uuid.UUID `json:"task_id"`
	TaskFields
}

// UpdateTaskCommand overwrites a task and upserts the listed sub-tasks.
// Sub-tasks that are not listed are left untouched.
type UpdateTaskCommand struct {
	ID uuid.UUID `json:"task_id"`
	TaskFields
	// ParentID re-parents the target when set. Nil keeps the current parent.
	ParentID *uuid.UUID    `json:"parent_task_id,omitempty"`
	SubTasks []SubTaskInput `json:"sub_tasks,omitempty"`
}

// TaskService manages top-level tasks and their direct sub-tasks.
// Listings are ordered by creation time, newest first.
type TaskService interface {
	// GetAll returns every top-level task with its sub-tasks.
	GetAll(ctx context.Context) ([]TaskView, error)

	// GetByID returns a task with its sub-tasks, or ErrTaskNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*TaskView, error)

	// GetByUserID returns the top-level tasks owned by userID with their
	// sub-tasks. Sub-tasks are not filtered by owner.
	GetByUserID(ctx context.Context, userID string) ([]TaskView, error)

	// Create stores a task and its inline sub-tasks atomically and returns
	// the stored tree.
	Create(ctx context.Context, cmd CreateTaskCommand) (*TaskView, error)

	// Update overwrites the target task, upserts the listed sub-tasks by id,
	// and returns the stored tree. Returns ErrTaskNotFound if the target is missing.
	Update(ctx context.Context, cmd UpdateTaskCommand) (*TaskView, error)

	// Delete removes a task and its direct sub-tasks. It reports false, with
	// no error, when the task does not exist.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)

	// ListPaginated returns one page of top-level tasks with their sub-tasks.
	// Out-of-range page numbers and sizes are clamped.
	ListPaginated(ctx context.Context, page, pageSize int) (*TaskPage, error)
}

// TaskServiceOption configures a TaskService.
type TaskServiceOption func(*taskServiceImpl)

// WithClock replaces the time source used for CreatedAt and UpdatedAt.
func WithClock(now func() time.Time) TaskServiceOption {
	return func(s *taskServiceImpl) {
		if now != nil {
			s.now = now
		}
	}
}

// WithPageSizeBounds sets the default and maximum page sizes for ListPaginated.
func WithPageSizeBounds(defaultSize, maxSize int) TaskServiceOption {
	return func(s *taskServiceImpl) {
		if defaultSize > 0 {
			s.defaultPageSize = defaultSize
		}
		if maxSize > 0 {
			s.maxPageSize = maxSize
		}
	}
}

type taskServiceImpl struct {
	db              store.TxBeginner
	tasks           store.TaskStore
	logger          *slog.Logger
	now             func() time.Time
	defaultPageSize int
	maxPageSize     int
}

// NewTaskService creates a TaskService. Mutations run in transactions begun
// on db; reads go through tasks directly.
func NewTaskService(
	db store.TxBeginner,
	tasks store.TaskStore,
	logger *slog.Logger,
	opts ...TaskServiceOption,
) (TaskService, error) {
	if db == nil {
		return nil, domain.NewValidationError("db", "cannot be nil", domain.ErrValidation)
	}
	if tasks == nil {
		return nil, domain.NewValidationError("tasks", "cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &taskServiceImpl{
		db:              db,
		tasks:           tasks,
		logger:          logger.With(slog.String("component", "task_service")),
		now:             time.Now,
		defaultPageSize: pagination.DefaultPageSize,
		maxPageSize:     pagination.MaxPageSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *taskServiceImpl) clock() time.Time {
	return s.now().UTC()
}

// GetAll implements TaskService.GetAll.
func (s *taskServiceImpl) GetAll(ctx context.Context) ([]TaskView, error) {
	return s.listTopLevel(ctx, store.TaskFilter{TopLevelOnly: true}, "get_all")
}

// GetByUserID implements TaskService.GetByUserID.
func (s *taskServiceImpl) GetByUserID(ctx context.Context, userID string) ([]TaskView, error) {
	return s.listTopLevel(ctx, store.TaskFilter{TopLevelOnly: true, UserID: &userID}, userID)
}

func (s *taskServiceImpl) listTopLevel(ctx context.Context, filter store.TaskFilter, request any) ([]TaskView, error) {
	parents, err := s.tasks.Find(ctx, filter, store.Page{})
	if err != nil {
		return nil, s.fault(ctx, OpRetrieve, request, err)
	}
	trees, err := loadTrees(ctx, s.tasks, parents)
	if err != nil {
		return nil, s.fault(ctx, OpRetrieve, request, err)
	}
	return newTaskViews(trees), nil
}

// GetByID implements TaskService.GetByID.
func (s *taskServiceImpl) GetByID(ctx context.Context, id uuid.UUID) (*TaskView, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	tree, err := loadTree(ctx, s.tasks, id)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			log.Debug("task not found", slog.String("task_id", id.String()))
			return nil, ErrTaskNotFound
		}
		return nil, s.fault(ctx, OpRetrieve, id, err)
	}
	view := newTaskView(*tree)
	return &view, nil
}

// ListPaginated implements TaskService.ListPaginated.
func (s *taskServiceImpl) ListPaginated(ctx context.Context, page, pageSize int) (*TaskPage, error) {
	page, pageSize = pagination.NormalizeWith(page, pageSize, s.defaultPageSize, s.maxPageSize)
	request := map[string]int{"page": page, "page_size": pageSize}
	filter := store.TaskFilter{TopLevelOnly: true}

	total, err := s.tasks.Count(ctx, filter)
	if err != nil {
		return nil, s.fault(ctx, OpRetrieve, request, err)
	}

	result := &TaskPage{
		Items:      []TaskView{},
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: pagination.TotalPages(total, pageSize),
	}

	offset, limit := pagination.Window(page, pageSize, total)
	if limit == 0 {
		return result, nil
	}

	parents, err := s.tasks.Find(ctx, filter, store.Page{Limit: limit, Offset: offset})
	if err != nil {
		return nil, s.fault(ctx, OpRetrieve, request, err)
	}
	trees, err := loadTrees(ctx, s.tasks, parents)
	if err != nil {
		return nil, s.fault(ctx, OpRetrieve, request, err)
	}
	result.Items = newTaskViews(trees)
	return result, nil
}

// Create implements TaskService.Create.
func (s *taskServiceImpl) Create(ctx context.Context, cmd CreateTaskCommand) (*TaskView, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if cmd.ParentID != nil && len(cmd.SubTasks) > 0 {
		return nil, ErrHierarchyTooDeep
	}

	now := s.clock()
	parent := newTaskFromFields(cmd.ID, cmd.TaskFields, now)
	parent.ParentID = cmd.ParentID
	if err := parent.Validate(); err != nil {
		log.Debug("invalid task", slog.String("error", err.Error()))
		return nil, err
	}

	subs := make([]*domain.Task, 0, len(cmd.SubTasks))
	for i, fields := range cmd.SubTasks {
		sub := newTaskFromFields(uuid.Nil, inheritOwner(fields, parent), s.clock())
		sub.ParentID = &parent.ID
		if err := sub.Validate(); err != nil {
			log.Debug("invalid sub-task", slog.Int("index", i), slog.String("error", err.Error()))
			return nil, subTaskValidationError(i, err)
		}
		subs = append(subs, sub)
	}

	var tree *domain.TaskTree
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.tasks.WithTx(tx)

		if parent.ParentID != nil {
			if err := requireTopLevelParent(ctx, txTasks, *parent.ParentID); err != nil {
				return err
			}
		}

		// Sub-tasks go in first; the parent foreign key is checked at commit.
		if err := txTasks.CreateMultiple(ctx, subs); err != nil {
			return err
		}
		if err := txTasks.Create(ctx, parent); err != nil {
			return err
		}

		var err error
		tree, err = loadTree(ctx, txTasks, parent.ID)
		return err
	})
	if err != nil {
		if isCallerError(err) {
			log.Debug("task creation rejected", slog.String("error", err.Error()))
			return nil, err
		}
		// Sub-task ids are generated here, so a unique violation can only
		// come from a caller-supplied parent id.
		if store.IsDuplicateError(err) {
			log.Debug("task id already in use", slog.String("task_id", parent.ID.String()))
			return nil, ErrTaskExists
		}
		return nil, s.fault(ctx, OpCreate, cmd, err)
	}

	log.Info("task created",
		slog.String("task_id", parent.ID.String()),
		slog.Int("sub_task_count", len(subs)))

	view := newTaskView(*tree)
	return &view, nil
}

// Update implements TaskService.Update.
func (s *taskServiceImpl) Update(ctx context.Context, cmd UpdateTaskCommand) (*TaskView, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := validateUpdate(cmd); err != nil {
		log.Debug("invalid task update", slog.String("error", err.Error()))
		return nil, err
	}

	var tree *domain.TaskTree
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.tasks.WithTx(tx)
		now := s.clock()

		target, err := txTasks.GetByID(ctx, cmd.ID)
		if err != nil {
			return err
		}

		if cmd.ParentID != nil && !sameParent(target.ParentID, cmd.ParentID) {
			if err := requireTopLevelParent(ctx, txTasks, *cmd.ParentID); err != nil {
				return err
			}
			if err := requireNoChildren(ctx, txTasks, target.ID); err != nil {
				return err
			}
			target.ParentID = cmd.ParentID
		}
		if len(cmd.SubTasks) > 0 && !target.IsTopLevel() {
			return ErrHierarchyTooDeep
		}

		applyFields(target, cmd.TaskFields, now)
		if err := target.Validate(); err != nil {
			return err
		}
		if err := txTasks.Update(ctx, target); err != nil {
			return err
		}

		var inserts []*domain.Task
		for i, input := range cmd.SubTasks {
			if input.ID != uuid.Nil {
				existing, err := txTasks.GetByID(ctx, input.ID)
				switch {
				case err == nil:
					if err := requireNoChildren(ctx, txTasks, existing.ID); err != nil {
						return err
					}
					applyFields(existing, input.TaskFields, now)
					existing.ParentID = &target.ID
					if err := existing.Validate(); err != nil {
						return subTaskValidationError(i, err)
					}
					if err := txTasks.Update(ctx, existing); err != nil {
						return err
					}
					continue
				case !errors.Is(err, store.ErrTaskNotFound):
					return err
				}
			}

			sub := newTaskFromFields(input.ID, inheritOwner(input.TaskFields, target), now)
			sub.ParentID = &target.ID
			if err := sub.Validate(); err != nil {
				return subTaskValidationError(i, err)
			}
			inserts = append(inserts, sub)
		}
		if err := txTasks.CreateMultiple(ctx, inserts); err != nil {
			return err
		}

		tree, err = loadTree(ctx, txTasks, target.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) || errors.Is(err, ErrTaskNotFound) {
			log.Debug("task not found for update", slog.String("task_id", cmd.ID.String()))
			return nil, ErrTaskNotFound
		}
		if isCallerError(err) {
			log.Debug("task update rejected", slog.String("error", err.Error()))
			return nil, err
		}
		return nil, s.fault(ctx, OpUpdate, cmd, err)
	}

	log.Info("task updated",
		slog.String("task_id", cmd.ID.String()),
		slog.Int("sub_task_inputs", len(cmd.SubTasks)))

	view := newTaskView(*tree)
	return &view, nil
}

// Delete implements TaskService.Delete.
func (s *taskServiceImpl) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var removedChildren int64
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.tasks.WithTx(tx)

		if _, err := txTasks.GetByID(ctx, id); err != nil {
			return err
		}

		var err error
		removedChildren, err = txTasks.DeleteWhere(ctx, store.TaskFilter{ParentIDs: []uuid.UUID{id}})
		if err != nil {
			return err
		}
		return txTasks.Delete(ctx, id)
	})
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			log.Debug("task not found for delete", slog.String("task_id", id.String()))
			return false, nil
		}
		return false, s.fault(ctx, OpDelete, id, err)
	}

	log.Info("task deleted",
		slog.String("task_id", id.String()),
		slog.Int64("sub_tasks_deleted", removedChildren))
	return true, nil
}

// fault logs an unexpected store failure once and converts it to a
// TaskServiceError.
func (s *taskServiceImpl) fault(ctx context.Context, op string, request any, err error) error {
	mapped := NewTaskServiceError(op, err)
	if !IsTaskServiceError(mapped) {
		return mapped
	}

	attrs := []any{
		slog.String("operation", op),
		slog.Any("request", request),
		slog.String("error", redact.Error(err)),
	}
	var storeErr *store.StoreError
	if errors.As(err, &storeErr) {
		attrs = append(attrs,
			slog.String("store_entity", storeErr.Entity),
			slog.String("store_operation", storeErr.Operation))
	}
	logger.FromContextOrDefault(ctx, s.logger).Error("task operation failed", attrs...)
	return mapped
}

// isCallerError reports whether err is a rejection the caller can correct.
func isCallerError(err error) bool {
	return errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrInvalidID)
}

// loadTree reads one task and, when it is top-level, its sub-tasks.
func loadTree(ctx context.Context, tasks store.TaskStore, id uuid.UUID) (*domain.TaskTree, error) {
	task, err := tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	trees, err := loadTrees(ctx, tasks, []*domain.Task{task})
	if err != nil {
		return nil, err
	}
	return &trees[0], nil
}

// loadTrees attaches sub-tasks to parents with one batched query, keeping
// the order of parents and of the store's child listing.
func loadTrees(ctx context.Context, tasks store.TaskStore, parents []*domain.Task) ([]domain.TaskTree, error) {
	trees := make([]domain.TaskTree, 0, len(parents))
	ids := make([]uuid.UUID, 0, len(parents))
	for _, p := range parents {
		trees = append(trees, domain.TaskTree{Task: p, SubTasks: []*domain.Task{}})
		if p.IsTopLevel() {
			ids = append(ids, p.ID)
		}
	}
	if len(ids) == 0 {
		return trees, nil
	}

	children, err := tasks.Find(ctx, store.TaskFilter{ParentIDs: ids}, store.Page{})
	if err != nil {
		return nil, err
	}

	byParent := make(map[uuid.UUID][]*domain.Task, len(ids))
	for _, c := range children {
		if c.ParentID != nil {
			byParent[*c.ParentID] = append(byParent[*c.ParentID], c)
		}
	}
	for i := range trees {
		if subs, ok := byParent[trees[i].Task.ID]; ok {
			trees[i].SubTasks = subs
		}
	}
	return trees, nil
}

// requireTopLevelParent checks that parentID names an existing top-level task.
func requireTopLevelParent(ctx context.Context, tasks store.TaskStore, parentID uuid.UUID) error {
	parent, err := tasks.GetByID(ctx, parentID)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			return ErrParentTaskNotFound
		}
		return err
	}
	if !parent.IsTopLevel() {
		return ErrHierarchyTooDeep
	}
	return nil
}

// requireNoChildren checks that id has no sub-tasks, so it may become one.
func requireNoChildren(ctx context.Context, tasks store.TaskStore, id uuid.UUID) error {
	n, err := tasks.Count(ctx, store.TaskFilter{ParentIDs: []uuid.UUID{id}})
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrHierarchyTooDeep
	}
	return nil
}

func validateUpdate(cmd UpdateTaskCommand) error {
	if cmd.ID == uuid.Nil {
		return domain.NewValidationError("task_id", "is required", domain.ErrInvalidID)
	}
	if cmd.ParentID != nil {
		if *cmd.ParentID == cmd.ID {
			return ErrHierarchyTooDeep
		}
		if len(cmd.SubTasks) > 0 {
			return ErrHierarchyTooDeep
		}
	}

	if err := newTaskFromFields(cmd.ID, cmd.TaskFields, time.Time{}).Validate(); err != nil {
		return err
	}

	seen := make(map[uuid.UUID]struct{}, len(cmd.SubTasks))
	for i, input := range cmd.SubTasks {
		if err := newTaskFromFields(input.ID, input.TaskFields, time.Time{}).Validate(); err != nil {
			return subTaskValidationError(i, err)
		}
		if input.ID == uuid.Nil {
			continue
		}
		if input.ID == cmd.ID {
			return ErrHierarchyTooDeep
		}
		if _, dup := seen[input.ID]; dup {
			return domain.NewValidationError(
				fmt.Sprintf("sub_tasks[%d].task_id", i), "is listed more than once", nil)
		}
		seen[input.ID] = struct{}{}
	}
	return nil
}

// newTaskFromFields builds a new task row stamped with now. A nil id is
// replaced by a fresh one.
func newTaskFromFields(id uuid.UUID, f TaskFields, now time.Time) *domain.Task {
	if id == uuid.Nil {
		id = uuid.New()
	}
	t := &domain.Task{
		ID:        id,
		CreatedAt: now,
	}
	applyFields(t, f, time.Time{})
	t.UpdatedAt = nil
	return t
}

// applyFields overwrites the mutable attributes of t from f and stamps
// UpdatedAt. An empty status or nil owner/creator keeps the current value.
func applyFields(t *domain.Task, f TaskFields, now time.Time) {
	t.Name = f.Name
	t.Description = f.Description
	t.Remarks = f.Remarks
	if f.Status != "" {
		t.Status = f.Status
	}
	if f.UserID != nil {
		t.UserID = f.UserID
	}
	if f.CreatedByUser != nil {
		t.CreatedByUser = f.CreatedByUser
	}
	t.DueDate = f.DueDate
	t.SubmissionDate = f.SubmissionDate
	t.ReviewDate = f.ReviewDate
	t.CompletionDate = f.CompletionDate
	t.IsComplete = f.IsComplete
	t.UpdatedAt = &now

	t.ApplyDefaults()
	t.NormalizeDates()
}

// inheritOwner fills a sub-task's owner and creator from its parent when
// the caller left them out.
func inheritOwner(f TaskFields, parent *domain.Task) TaskFields {
	if f.UserID == nil {
		f.UserID = parent.UserID
	}
	if f.CreatedByUser == nil {
		f.CreatedByUser = parent.CreatedByUser
	}
	return f
}

func sameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// subTaskValidationError prefixes a field error with the sub-task's index.
func subTaskValidationError(index int, err error) error {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return domain.NewValidationError(fmt.Sprintf("sub_tasks[%d].%s", index, ve.Field), ve.Message, ve.Err)
	}
	return err
}
