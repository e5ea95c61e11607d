//go:build integration

package testdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
)

// Reset removes every task and user. Sub-tasks are removed before their
// parents.
func Reset(ctx context.Context, db *sql.DB) error {
	for _, stmt := range []string{
		"DELETE FROM tasks WHERE parent_task_id IS NOT NULL",
		"DELETE FROM tasks",
		"DELETE FROM users",
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("reset failed on %q: %w", stmt, err)
		}
	}
	return nil
}

// WithTx runs fn in a transaction that is always rolled back, so the test
// leaves no rows behind.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Errorf("failed to roll back transaction: %v", err)
		}
	}()

	fn(t, tx)
}

// CountTasks returns the number of task rows matching where, which may be
// empty.
func CountTasks(ctx context.Context, db *sql.DB, where string, args ...any) (int, error) {
	query := "SELECT COUNT(*) FROM tasks"
	if where != "" {
		query += " WHERE " + where
	}
	var n int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return n, nil
}
