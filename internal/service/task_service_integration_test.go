//go:build integration

package service_test

import (
	"context"
	"testing"

	"github.com/phrazzld/taskhub-api/internal/platform/postgres"
	"github.com/phrazzld/taskhub-api/internal/service"
	"github.com/phrazzld/taskhub-api/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskService_Postgres(t *testing.T) {
	ctx := context.Background()
	pg, err := testdb.Start(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Close(ctx) })

	svc, err := service.NewTaskService(pg.DB, postgres.NewPostgresTaskStore(pg.DB, nil), nil)
	require.NoError(t, err)

	t.Run("failed parent insert leaves no sub-tasks", func(t *testing.T) {
		require.NoError(t, testdb.Reset(ctx, pg.DB))
		existing, err := svc.Create(ctx, service.CreateTaskCommand{TaskFields: service.TaskFields{Name: "first"}})
		require.NoError(t, err)

		// reusing the id makes the parent insert fail after the sub-tasks are written
		_, err = svc.Create(ctx, service.CreateTaskCommand{
			ID:         existing.ID,
			TaskFields: service.TaskFields{Name: "duplicate"},
			SubTasks:   []service.TaskFields{{Name: "orphan one"}, {Name: "orphan two"}},
		})
		require.ErrorIs(t, err, service.ErrTaskExists)

		n, err := testdb.CountTasks(ctx, pg.DB, "name LIKE 'orphan%'")
		require.NoError(t, err)
		assert.Zero(t, n)

		n, err = testdb.CountTasks(ctx, pg.DB, "")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("ship release round trip", func(t *testing.T) {
		require.NoError(t, testdb.Reset(ctx, pg.DB))
		created, err := svc.Create(ctx, service.CreateTaskCommand{
			TaskFields: service.TaskFields{Name: "Ship release"},
			SubTasks:   []service.TaskFields{{Name: "Write changelog"}},
		})
		require.NoError(t, err)

		got, err := svc.GetByID(ctx, created.ID)
		require.NoError(t, err)
		require.Len(t, got.SubTasks, 1)
		assert.Equal(t, "Write changelog", got.SubTasks[0].Name)

		deleted, err := svc.Delete(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = svc.Delete(ctx, created.ID)
		require.NoError(t, err)
		assert.False(t, deleted)

		n, err := testdb.CountTasks(ctx, pg.DB, "")
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("pagination covers every task once", func(t *testing.T) {
		require.NoError(t, testdb.Reset(ctx, pg.DB))
		for i := 0; i < 7; i++ {
			_, err := svc.Create(ctx, service.CreateTaskCommand{TaskFields: service.TaskFields{Name: "task"}})
			require.NoError(t, err)
		}

		seen := map[string]bool{}
		for page := 1; page <= 3; page++ {
			result, err := svc.ListPaginated(ctx, page, 3)
			require.NoError(t, err)
			assert.Equal(t, 7, result.TotalCount)
			assert.Equal(t, 3, result.TotalPages)
			for _, item := range result.Items {
				assert.False(t, seen[item.ID.String()], "duplicate %s", item.ID)
				seen[item.ID.String()] = true
			}
		}
		assert.Len(t, seen, 7)
	})
}
