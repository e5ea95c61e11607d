package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskhub-api/internal/domain"
	"github.com/phrazzld/taskhub-api/internal/platform/logger"
	"github.com/phrazzld/taskhub-api/internal/store"
)

// taskColumns is the column list shared by every task SELECT and INSERT.
const taskColumns = `id, name, description, remarks, status, created_at, updated_at,
	user_id, created_by_user, due_date, submission_date, review_date,
	completion_date, is_complete, parent_task_id`

const taskColumnCount = 15

// taskOrder is the listing order; id breaks ties between equal timestamps.
const taskOrder = ` ORDER BY created_at DESC, id DESC`

// PostgresTaskStore implements store.TaskStore on PostgreSQL.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a task store over a connection or transaction.
// If logger is nil, slog.Default() is used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

var _ store.TaskStore = (*PostgresTaskStore)(nil)

// WithTx implements store.TaskStore.WithTx.
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		logger: s.logger,
	}
}

// GetByID implements store.TaskStore.GetByID.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found", slog.String("task_id", id.String()))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task by ID",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, taskError("get", "failed to get task by ID", err)
	}
	return task, nil
}

// Find implements store.TaskStore.Find.
func (s *PostgresTaskStore) Find(
	ctx context.Context,
	filter store.TaskFilter,
	page store.Page,
) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if matchesNothing(filter) {
		return []*domain.Task{}, nil
	}

	where, args := buildTaskWhere(filter)
	query := `SELECT ` + taskColumns + ` FROM tasks` + where + taskOrder
	if page.Limit > 0 {
		args = append(args, page.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if page.Offset > 0 {
		args = append(args, page.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query tasks", slog.String("error", err.Error()))
		return nil, taskError("find", "failed to query tasks", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	tasks := []*domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			log.Error("failed to scan task row", slog.String("error", err.Error()))
			return nil, taskError("find", "failed to scan task row", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		log.Error("error iterating task rows", slog.String("error", err.Error()))
		return nil, taskError("find", "error iterating task rows", err)
	}

	log.Debug("found tasks", slog.Int("count", len(tasks)))
	return tasks, nil
}

// Count implements store.TaskStore.Count.
func (s *PostgresTaskStore) Count(ctx context.Context, filter store.TaskFilter) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if matchesNothing(filter) {
		return 0, nil
	}

	where, args := buildTaskWhere(filter)
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`+where, args...).Scan(&n); err != nil {
		log.Error("failed to count tasks", slog.String("error", err.Error()))
		return 0, taskError("count", "failed to count tasks", err)
	}
	return n, nil
}

// Create implements store.TaskStore.Create.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	return s.CreateMultiple(ctx, []*domain.Task{task})
}

// CreateMultiple implements store.TaskStore.CreateMultiple with a single
// multi-row INSERT.
func (s *PostgresTaskStore) CreateMultiple(ctx context.Context, tasks []*domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(tasks) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString(`INSERT INTO tasks (` + taskColumns + `) VALUES `)
	args := make([]any, 0, len(tasks)*taskColumnCount)
	for i, task := range tasks {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(placeholders(len(args)+1, taskColumnCount))
		args = append(args, taskArgs(task)...)
	}

	if _, err := s.db.ExecContext(ctx, b.String(), args...); err != nil {
		log.Error("failed to insert tasks",
			slog.String("error", err.Error()),
			slog.Int("count", len(tasks)))
		return taskError("create", "failed to insert tasks", err)
	}

	log.Debug("tasks inserted", slog.Int("count", len(tasks)))
	return nil
}

// Update implements store.TaskStore.Update. created_at is never written.
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE tasks
		SET name = $2, description = $3, remarks = $4, status = $5, updated_at = $6,
			user_id = $7, created_by_user = $8, due_date = $9, submission_date = $10,
			review_date = $11, completion_date = $12, is_complete = $13, parent_task_id = $14
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.Name,
		nullString(task.Description),
		nullString(task.Remarks),
		string(task.Status),
		nullTime(task.UpdatedAt),
		nullString(task.UserID),
		nullString(task.CreatedByUser),
		nullTime(task.DueDate),
		nullTime(task.SubmissionDate),
		nullTime(task.ReviewDate),
		nullTime(task.CompletionDate),
		task.IsComplete,
		nullUUID(task.ParentID),
	)
	if err != nil {
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return taskError("update", "failed to update task", err)
	}

	if err := checkRowsAffected(result, store.ErrTaskNotFound); err != nil {
		log.Debug("task not found for update", slog.String("task_id", task.ID.String()))
		return err
	}
	return nil
}

// Delete implements store.TaskStore.Delete.
func (s *PostgresTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return taskError("delete", "failed to delete task", err)
	}
	return checkRowsAffected(result, store.ErrTaskNotFound)
}

// DeleteWhere implements store.TaskStore.DeleteWhere.
func (s *PostgresTaskStore) DeleteWhere(ctx context.Context, filter store.TaskFilter) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if filter.IsZero() {
		return 0, fmt.Errorf("%w: refusing to delete without a filter", store.ErrInvalidEntity)
	}
	if matchesNothing(filter) {
		return 0, nil
	}

	where, args := buildTaskWhere(filter)
	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks`+where, args...)
	if err != nil {
		log.Error("failed to delete tasks", slog.String("error", err.Error()))
		return 0, taskError("delete", "failed to delete tasks", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	log.Debug("tasks deleted", slog.Int64("count", n))
	return n, nil
}

// taskError maps a driver error and records which task operation failed.
// The store sentinels stay reachable through errors.Is.
func taskError(operation, message string, err error) error {
	return store.NewStoreError("task", operation, message, MapError(err))
}

// matchesNothing reports whether the filter restricts parents to an empty set.
func matchesNothing(filter store.TaskFilter) bool {
	return filter.ParentIDs != nil && len(filter.ParentIDs) == 0
}

// buildTaskWhere renders filter as a WHERE clause with numbered placeholders
// starting at $1. It returns "" when the filter has no restrictions.
func buildTaskWhere(filter store.TaskFilter) (string, []any) {
	var conds []string
	var args []any

	if filter.TopLevelOnly {
		conds = append(conds, "parent_task_id IS NULL")
	}
	if len(filter.ParentIDs) > 0 {
		marks := make([]string, len(filter.ParentIDs))
		for i, id := range filter.ParentIDs {
			args = append(args, id)
			marks[i] = fmt.Sprintf("$%d", len(args))
		}
		conds = append(conds, "parent_task_id IN ("+strings.Join(marks, ", ")+")")
	}
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// placeholders renders "($start, ..., $start+n-1)".
func placeholders(start, n int) string {
	marks := make([]string, n)
	for i := range marks {
		marks[i] = fmt.Sprintf("$%d", start+i)
	}
	return "(" + strings.Join(marks, ", ") + ")"
}

// taskArgs returns the INSERT arguments in taskColumns order.
func taskArgs(t *domain.Task) []any {
	return []any{
		t.ID,
		t.Name,
		nullString(t.Description),
		nullString(t.Remarks),
		string(t.Status),
		t.CreatedAt,
		nullTime(t.UpdatedAt),
		nullString(t.UserID),
		nullString(t.CreatedByUser),
		nullTime(t.DueDate),
		nullTime(t.SubmissionDate),
		nullTime(t.ReviewDate),
		nullTime(t.CompletionDate),
		t.IsComplete,
		nullUUID(t.ParentID),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanTask reads one row in taskColumns order.
func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		t                                    domain.Task
		status                               string
		description, remarks, owner, creator sql.NullString
		updatedAt, due, submitted, reviewed  sql.NullTime
		completed                            sql.NullTime
		parentID                             uuid.NullUUID
	)

	err := row.Scan(
		&t.ID,
		&t.Name,
		&description,
		&remarks,
		&status,
		&t.CreatedAt,
		&updatedAt,
		&owner,
		&creator,
		&due,
		&submitted,
		&reviewed,
		&completed,
		&t.IsComplete,
		&parentID,
	)
	if err != nil {
		return nil, err
	}

	t.Status = domain.TaskStatus(status)
	t.CreatedAt = t.CreatedAt.UTC()
	t.Description = stringPtr(description)
	t.Remarks = stringPtr(remarks)
	t.UserID = stringPtr(owner)
	t.CreatedByUser = stringPtr(creator)
	t.UpdatedAt = timePtr(updatedAt)
	t.DueDate = timePtr(due)
	t.SubmissionDate = timePtr(submitted)
	t.ReviewDate = timePtr(reviewed)
	t.CompletionDate = timePtr(completed)
	if parentID.Valid {
		id := parentID.UUID
		t.ParentID = &id
	}
	return &t, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}
