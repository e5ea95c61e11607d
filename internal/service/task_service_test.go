package service_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/taskhub-api/internal/domain"
	"github.com/phrazzld/taskhub-api/internal/mocks"
	"github.com/phrazzld/taskhub-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

type taskFixture struct {
	svc   service.TaskService
	tasks *mocks.MockTaskStore
	db    sqlmock.Sqlmock
	ticks int
}

// newTaskFixture wires a TaskService to an in-memory store and a sqlmock
// connection that only sees BEGIN/COMMIT/ROLLBACK. The clock advances one
// second per reading.
func newTaskFixture(t *testing.T) *taskFixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})

	f := &taskFixture{tasks: mocks.NewMockTaskStore(), db: mock}
	clock := func() time.Time {
		f.ticks++
		return baseTime.Add(time.Duration(f.ticks) * time.Second)
	}

	f.svc, err = service.NewTaskService(db, f.tasks, nil, service.WithClock(clock))
	require.NoError(t, err)
	return f
}

func (f *taskFixture) expectCommit() {
	f.db.ExpectBegin()
	f.db.ExpectCommit()
}

func (f *taskFixture) expectRollback() {
	f.db.ExpectBegin()
	f.db.ExpectRollback()
}

func strPtr(s string) *string { return &s }

func seedTask(name string, created time.Time, parent *uuid.UUID) *domain.Task {
	return &domain.Task{
		ID:        uuid.New(),
		Name:      name,
		Status:    domain.TaskStatusPending,
		CreatedAt: created,
		ParentID:  parent,
	}
}

func TestNewTaskService_RequiresDependencies(t *testing.T) {
	_, err := service.NewTaskService(nil, mocks.NewMockTaskStore(), nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = service.NewTaskService(db, nil, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreate_ShipReleaseExample(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	f.expectCommit()
	created, err := f.svc.Create(ctx, service.CreateTaskCommand{
		TaskFields: service.TaskFields{Name: "Ship release"},
		SubTasks:   []service.TaskFields{{Name: "Write changelog"}},
	})
	require.NoError(t, err)

	got, err := f.svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ship release", got.Name)
	require.Len(t, got.SubTasks, 1)
	assert.Equal(t, "Write changelog", got.SubTasks[0].Name)
	require.NotNil(t, got.SubTasks[0].ParentID)
	assert.Equal(t, created.ID, *got.SubTasks[0].ParentID)
	assert.Equal(t, domain.TaskStatusPending, got.SubTasks[0].Status)
}

func TestCreate_StampsCreatedAtInUTC(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	zone := time.FixedZone("UTC+3", 3*60*60)
	now := time.Date(2025, 6, 1, 11, 0, 0, 0, zone)
	tasks := mocks.NewMockTaskStore()
	svc, err := service.NewTaskService(db, tasks, nil,
		service.WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectCommit()
	view, err := svc.Create(context.Background(), service.CreateTaskCommand{
		TaskFields: service.TaskFields{Name: "Plan sprint"},
		SubTasks:   []service.TaskFields{{Name: "Collect estimates"}},
	})
	require.NoError(t, err)

	assert.Equal(t, time.UTC, view.CreatedAt.Location())
	assert.True(t, now.Equal(view.CreatedAt))
	assert.Nil(t, view.UpdatedAt)
	require.Len(t, view.SubTasks, 1)
	assert.Equal(t, time.UTC, view.SubTasks[0].CreatedAt.Location())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_RoundTripSubTaskCount(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	id := uuid.New()
	f.expectCommit()
	created, err := f.svc.Create(ctx, service.CreateTaskCommand{
		ID:         id,
		TaskFields: service.TaskFields{Name: "Quarterly review", UserID: strPtr("u-1"), CreatedByUser: strPtr("alice")},
		SubTasks: []service.TaskFields{
			{Name: "Gather metrics"},
			{Name: "Draft slides", UserID: strPtr("u-2")},
			{Name: "Book room"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, id, created.ID, "caller-supplied id is kept")
	assert.Len(t, created.SubTasks, 3)

	got, err := f.svc.GetByID(ctx, id)
	require.NoError(t, err)
	require.Len(t, got.SubTasks, 3)

	// newest sub-task first
	assert.Equal(t, "Book room", got.SubTasks[0].Name)
	assert.Equal(t, "Gather metrics", got.SubTasks[2].Name)

	// owner and creator are inherited unless given
	assert.Equal(t, "u-1", *got.SubTasks[0].UserID)
	assert.Equal(t, "alice", *got.SubTasks[0].CreatedByUser)
	assert.Equal(t, "u-2", *got.SubTasks[1].UserID)

	assert.Equal(t, 1, f.tasks.Calls["CreateMultiple"])
	assert.Equal(t, 1, f.tasks.Calls["Create"])
}

func TestCreate_NormalizesDatesByReinterpretation(t *testing.T) {
	f := newTaskFixture(t)

	local := time.FixedZone("UTC+5", 5*60*60)
	due := time.Date(2025, 7, 4, 9, 30, 0, 0, local)

	f.expectCommit()
	view, err := f.svc.Create(context.Background(), service.CreateTaskCommand{
		TaskFields: service.TaskFields{Name: "Renew certificate", DueDate: &due},
	})
	require.NoError(t, err)

	stored, ok := f.tasks.Get(view.ID)
	require.True(t, ok)
	require.NotNil(t, stored.DueDate)
	assert.Equal(t, time.UTC, stored.DueDate.Location())
	assert.Equal(t, time.Date(2025, 7, 4, 9, 30, 0, 0, time.UTC), *stored.DueDate)
	assert.False(t, due.Equal(*stored.DueDate), "clock face kept, instant shifted")
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name  string
		cmd   service.CreateTaskCommand
		field string
	}{
		{
			name:  "missing name",
			cmd:   service.CreateTaskCommand{},
			field: "task_name",
		},
		{
			name: "name too long",
			cmd: service.CreateTaskCommand{
				TaskFields: service.TaskFields{Name: string(make([]rune, 151))},
			},
			field: "task_name",
		},
		{
			name: "bad status",
			cmd: service.CreateTaskCommand{
				TaskFields: service.TaskFields{Name: "x", Status: "Someday"},
			},
			field: "status",
		},
		{
			name: "invalid sub-task",
			cmd: service.CreateTaskCommand{
				TaskFields: service.TaskFields{Name: "x"},
				SubTasks:   []service.TaskFields{{Name: "ok"}, {Name: ""}},
			},
			field: "sub_tasks[1].task_name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTaskFixture(t)

			_, err := f.svc.Create(context.Background(), tt.cmd)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrValidation)

			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.Equal(t, 0, f.tasks.Len())
		})
	}
}

func TestCreate_StoreFailureIsWrapped(t *testing.T) {
	f := newTaskFixture(t)
	cause := errors.New("insert failed: connection reset by peer")
	f.tasks.CreateErr = cause

	f.expectRollback()
	_, err := f.svc.Create(context.Background(), service.CreateTaskCommand{
		TaskFields: service.TaskFields{Name: "Ship release"},
		SubTasks:   []service.TaskFields{{Name: "Write changelog"}},
	})
	require.Error(t, err)
	assert.Equal(t, "an unexpected error occurred while creating tasks", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, service.IsTaskServiceError(err))
}

func TestCreate_ExistingIDIsRejected(t *testing.T) {
	f := newTaskFixture(t)
	existing := seedTask("Ship release", baseTime, nil)
	f.tasks.Seed(existing)

	f.expectRollback()
	view, err := f.svc.Create(context.Background(), service.CreateTaskCommand{
		ID:         existing.ID,
		TaskFields: service.TaskFields{Name: "Second release"},
	})
	assert.Nil(t, view)
	assert.ErrorIs(t, err, service.ErrTaskExists)
	assert.False(t, service.IsTaskServiceError(err))

	got, err := f.svc.GetByID(context.Background(), existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ship release", got.Name)
}

func TestCreate_AsSubTask(t *testing.T) {
	ctx := context.Background()

	t.Run("under a top-level task", func(t *testing.T) {
		f := newTaskFixture(t)
		parent := seedTask("parent", baseTime, nil)
		f.tasks.Seed(parent)

		f.expectCommit()
		view, err := f.svc.Create(ctx, service.CreateTaskCommand{
			TaskFields: service.TaskFields{Name: "child"},
			ParentID:   &parent.ID,
		})
		require.NoError(t, err)
		assert.Equal(t, parent.ID, *view.ParentID)
		assert.Empty(t, view.SubTasks)
	})

	t.Run("missing parent", func(t *testing.T) {
		f := newTaskFixture(t)
		missing := uuid.New()

		f.expectRollback()
		_, err := f.svc.Create(ctx, service.CreateTaskCommand{
			TaskFields: service.TaskFields{Name: "child"},
			ParentID:   &missing,
		})
		assert.ErrorIs(t, err, service.ErrParentTaskNotFound)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("under a sub-task", func(t *testing.T) {
		f := newTaskFixture(t)
		root := seedTask("root", baseTime, nil)
		mid := seedTask("mid", baseTime, &root.ID)
		f.tasks.Seed(root, mid)

		f.expectRollback()
		_, err := f.svc.Create(ctx, service.CreateTaskCommand{
			TaskFields: service.TaskFields{Name: "leaf"},
			ParentID:   &mid.ID,
		})
		assert.ErrorIs(t, err, service.ErrHierarchyTooDeep)
	})

	t.Run("with its own sub-tasks", func(t *testing.T) {
		f := newTaskFixture(t)
		parent := uuid.New()

		_, err := f.svc.Create(ctx, service.CreateTaskCommand{
			TaskFields: service.TaskFields{Name: "child"},
			ParentID:   &parent,
			SubTasks:   []service.TaskFields{{Name: "grandchild"}},
		})
		assert.ErrorIs(t, err, service.ErrHierarchyTooDeep)
	})
}

func TestGetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		f := newTaskFixture(t)
		view, err := f.svc.GetByID(ctx, uuid.New())
		assert.Nil(t, view)
		assert.ErrorIs(t, err, service.ErrTaskNotFound)
	})

	t.Run("store fault", func(t *testing.T) {
		f := newTaskFixture(t)
		cause := errors.New("pq: SELECT id, name FROM tasks failed")
		f.tasks.GetByIDErr = cause

		_, err := f.svc.GetByID(ctx, uuid.New())
		require.Error(t, err)
		assert.Equal(t, "an unexpected error occurred while retrieving tasks", err.Error())
		assert.ErrorIs(t, err, cause)
	})

	t.Run("sub-task has no children", func(t *testing.T) {
		f := newTaskFixture(t)
		root := seedTask("root", baseTime, nil)
		child := seedTask("child", baseTime, &root.ID)
		f.tasks.Seed(root, child)

		view, err := f.svc.GetByID(ctx, child.ID)
		require.NoError(t, err)
		assert.Equal(t, root.ID, *view.ParentID)
		assert.NotNil(t, view.SubTasks)
		assert.Empty(t, view.SubTasks)
	})
}

func TestGetAll_OrdersAndBatchesSubTasks(t *testing.T) {
	f := newTaskFixture(t)

	older := seedTask("older", baseTime, nil)
	newer := seedTask("newer", baseTime.Add(time.Hour), nil)
	f.tasks.Seed(older, newer,
		seedTask("older-a", baseTime, &older.ID),
		seedTask("newer-a", baseTime, &newer.ID),
		seedTask("newer-b", baseTime.Add(time.Minute), &newer.ID),
	)

	views, err := f.svc.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "newer", views[0].Name)
	assert.Equal(t, "older", views[1].Name)
	require.Len(t, views[0].SubTasks, 2)
	assert.Equal(t, "newer-b", views[0].SubTasks[0].Name)
	require.Len(t, views[1].SubTasks, 1)

	// one query for parents, one for all their children
	assert.Equal(t, 2, f.tasks.Calls["Find"])
}

func TestGetAll_EqualTimestampsUseIDTiebreak(t *testing.T) {
	f := newTaskFixture(t)
	low := seedTask("low", baseTime, nil)
	low.ID = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	high := seedTask("high", baseTime, nil)
	high.ID = uuid.MustParse("ffffffff-0000-0000-0000-000000000000")
	f.tasks.Seed(low, high)

	for i := 0; i < 3; i++ {
		views, err := f.svc.GetAll(context.Background())
		require.NoError(t, err)
		require.Len(t, views, 2)
		assert.Equal(t, "high", views[0].Name)
	}
}

func TestGetByUserID(t *testing.T) {
	f := newTaskFixture(t)

	mine := seedTask("mine", baseTime, nil)
	mine.UserID = strPtr("u-1")
	theirs := seedTask("theirs", baseTime, nil)
	theirs.UserID = strPtr("u-2")
	helper := seedTask("helper sub-task", baseTime, &mine.ID)
	helper.UserID = strPtr("u-2")
	f.tasks.Seed(mine, theirs, helper)

	views, err := f.svc.GetByUserID(context.Background(), "u-1")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "mine", views[0].Name)
	require.Len(t, views[0].SubTasks, 1, "sub-tasks are not filtered by owner")

	views, err = f.svc.GetByUserID(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("twice", func(t *testing.T) {
		f := newTaskFixture(t)
		task := seedTask("once", baseTime, nil)
		f.tasks.Seed(task)

		f.expectCommit()
		ok, err := f.svc.Delete(ctx, task.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		f.expectRollback()
		ok, err = f.svc.Delete(ctx, task.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("cascades to direct sub-tasks only", func(t *testing.T) {
		f := newTaskFixture(t)
		doomed := seedTask("doomed", baseTime, nil)
		other := seedTask("other", baseTime, nil)
		f.tasks.Seed(doomed, other,
			seedTask("a", baseTime, &doomed.ID),
			seedTask("b", baseTime, &doomed.ID),
			seedTask("c", baseTime, &other.ID),
		)

		f.expectCommit()
		ok, err := f.svc.Delete(ctx, doomed.ID)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 2, f.tasks.Len())

		_, found := f.tasks.Get(other.ID)
		assert.True(t, found)
	})

	t.Run("store fault", func(t *testing.T) {
		f := newTaskFixture(t)
		task := seedTask("stuck", baseTime, nil)
		f.tasks.Seed(task)
		f.tasks.DeleteWhereErr = errors.New("lock timeout")

		f.expectRollback()
		ok, err := f.svc.Delete(ctx, task.ID)
		assert.False(t, ok)
		assert.Equal(t, "an unexpected error occurred while deleting tasks", err.Error())
	})
}

func TestListPaginated_CoversEveryTopLevelTaskOnce(t *testing.T) {
	f := newTaskFixture(t)

	const total = 23
	for i := 0; i < total; i++ {
		parent := seedTask(fmt.Sprintf("task-%02d", i), baseTime.Add(time.Duration(i)*time.Minute), nil)
		f.tasks.Seed(parent, seedTask("sub", baseTime, &parent.ID))
	}

	for _, size := range []int{1, 5, 10, 23, 50} {
		t.Run(fmt.Sprintf("size %d", size), func(t *testing.T) {
			seen := map[uuid.UUID]bool{}
			var prev *time.Time

			first, err := f.svc.ListPaginated(context.Background(), 1, size)
			require.NoError(t, err)
			assert.Equal(t, total, first.TotalCount)
			assert.Equal(t, (total+size-1)/size, first.TotalPages)

			for page := 1; page <= first.TotalPages; page++ {
				result, err := f.svc.ListPaginated(context.Background(), page, size)
				require.NoError(t, err)
				for _, item := range result.Items {
					assert.False(t, seen[item.ID], "duplicate %s", item.Name)
					seen[item.ID] = true
					assert.Nil(t, item.ParentID)
					assert.Len(t, item.SubTasks, 1)
					if prev != nil {
						assert.False(t, item.CreatedAt.After(*prev), "ordered newest first")
					}
					created := item.CreatedAt
					prev = &created
				}
			}
			assert.Len(t, seen, total)
		})
	}
}

func TestListPaginated_Clamping(t *testing.T) {
	f := newTaskFixture(t)
	for i := 0; i < 3; i++ {
		f.tasks.Seed(seedTask("t", baseTime.Add(time.Duration(i)*time.Second), nil))
	}

	result, err := f.svc.ListPaginated(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, 10, result.PageSize)
	assert.Len(t, result.Items, 3)

	result, err = f.svc.ListPaginated(context.Background(), -2, 5000)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, 100, result.PageSize)

	result, err = f.svc.ListPaginated(context.Background(), 9, 10)
	require.NoError(t, err)
	assert.Empty(t, result.Items)
	assert.NotNil(t, result.Items)
	assert.Equal(t, 3, result.TotalCount)
}

func TestListPaginated_HugePageIsEmpty(t *testing.T) {
	f := newTaskFixture(t)
	for i := 0; i < 25; i++ {
		f.tasks.Seed(seedTask(fmt.Sprintf("task-%02d", i), baseTime.Add(time.Duration(i)*time.Second), nil))
	}

	for _, page := range []int{math.MaxInt / 50, math.MaxInt/100 + 1, math.MaxInt} {
		result, err := f.svc.ListPaginated(context.Background(), page, 100)
		require.NoError(t, err)
		assert.Empty(t, result.Items, "page %d", page)
		assert.NotNil(t, result.Items)
		assert.Equal(t, 25, result.TotalCount)
		assert.Equal(t, 1, result.TotalPages)
	}
}

func TestListPaginated_CustomBounds(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	svc, err := service.NewTaskService(db, mocks.NewMockTaskStore(), nil, service.WithPageSizeBounds(20, 40))
	require.NoError(t, err)

	result, err := svc.ListPaginated(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 20, result.PageSize)

	result, err = svc.ListPaginated(context.Background(), 1, 41)
	require.NoError(t, err)
	assert.Equal(t, 40, result.PageSize)
}

func TestUpdate_UpsertsSubTasksByID(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	target := seedTask("target", baseTime, nil)
	elsewhere := seedTask("elsewhere", baseTime, nil)
	existing := seedTask("existing", baseTime, &elsewhere.ID)
	untouched := seedTask("untouched", baseTime, &target.ID)
	f.tasks.Seed(target, elsewhere, existing, untouched)
	unknown := uuid.New()

	f.expectCommit()
	view, err := f.svc.Update(ctx, service.UpdateTaskCommand{
		ID:         target.ID,
		TaskFields: service.TaskFields{Name: "target v2", Status: domain.TaskStatusInProgress},
		SubTasks: []service.SubTaskInput{
			{ID: existing.ID, TaskFields: service.TaskFields{Name: "existing v2", Status: domain.TaskStatusCompleted}},
			{ID: unknown, TaskFields: service.TaskFields{Name: "brand new"}},
		},
	})
	require.NoError(t, err)

	// one update for the target, one for the existing sub-task, one batched insert
	assert.Equal(t, 2, f.tasks.Calls["Update"])
	assert.Equal(t, 1, f.tasks.Calls["CreateMultiple"])

	require.Len(t, view.SubTasks, 3)
	byID := map[uuid.UUID]service.SubTaskView{}
	for _, s := range view.SubTasks {
		byID[s.ID] = s
		assert.Equal(t, target.ID, *s.ParentID)
	}
	assert.Equal(t, "existing v2", byID[existing.ID].Name)
	assert.Equal(t, domain.TaskStatusCompleted, byID[existing.ID].Status)
	assert.Equal(t, "brand new", byID[unknown].Name)
	assert.Equal(t, "untouched", byID[untouched.ID].Name)

	assert.Equal(t, "target v2", view.Name)
	assert.Equal(t, domain.TaskStatusInProgress, view.Status)
}

func TestUpdate_OverwritesFieldsAndKeepsCreatedAt(t *testing.T) {
	f := newTaskFixture(t)

	target := seedTask("draft", baseTime, nil)
	target.Description = strPtr("old")
	target.UserID = strPtr("u-1")
	f.tasks.Seed(target)

	local := time.FixedZone("UTC-4", -4*60*60)
	review := time.Date(2025, 8, 1, 17, 0, 0, 0, local)

	f.expectCommit()
	view, err := f.svc.Update(context.Background(), service.UpdateTaskCommand{
		ID: target.ID,
		TaskFields: service.TaskFields{
			Name:       "final",
			Remarks:    strPtr("ready"),
			ReviewDate: &review,
			IsComplete: true,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "final", view.Name)
	assert.Nil(t, view.Description, "description is overwritten")
	assert.Equal(t, "ready", *view.Remarks)
	assert.Equal(t, "u-1", *view.UserID, "owner kept when omitted")
	assert.Equal(t, domain.TaskStatusPending, view.Status, "status kept when omitted")
	assert.True(t, view.IsComplete)
	assert.Equal(t, baseTime, view.CreatedAt)
	require.NotNil(t, view.UpdatedAt)
	assert.Equal(t, time.UTC, view.UpdatedAt.Location())
	assert.True(t, view.UpdatedAt.After(baseTime))
	assert.Equal(t, time.Date(2025, 8, 1, 17, 0, 0, 0, time.UTC), *view.ReviewDate)
}

func TestUpdate_NotFound(t *testing.T) {
	f := newTaskFixture(t)

	f.expectRollback()
	_, err := f.svc.Update(context.Background(), service.UpdateTaskCommand{
		ID:         uuid.New(),
		TaskFields: service.TaskFields{Name: "ghost"},
	})
	assert.ErrorIs(t, err, service.ErrTaskNotFound)
	assert.False(t, service.IsTaskServiceError(err))
}

func TestUpdate_Hierarchy(t *testing.T) {
	ctx := context.Background()

	type seeded struct {
		rootA, rootB, childOfA *domain.Task
	}
	setup := func(t *testing.T) (*taskFixture, seeded) {
		f := newTaskFixture(t)
		s := seeded{
			rootA: seedTask("root A", baseTime, nil),
			rootB: seedTask("root B", baseTime, nil),
		}
		s.childOfA = seedTask("child of A", baseTime, &s.rootA.ID)
		f.tasks.Seed(s.rootA, s.rootB, s.childOfA)
		return f, s
	}

	t.Run("re-parent a leaf onto a top-level task", func(t *testing.T) {
		f, s := setup(t)
		f.expectCommit()
		view, err := f.svc.Update(ctx, service.UpdateTaskCommand{
			ID:         s.childOfA.ID,
			TaskFields: service.TaskFields{Name: "moved"},
			ParentID:   &s.rootB.ID,
		})
		require.NoError(t, err)
		assert.Equal(t, s.rootB.ID, *view.ParentID)
	})

	t.Run("missing parent", func(t *testing.T) {
		f, s := setup(t)
		missing := uuid.New()
		f.expectRollback()
		_, err := f.svc.Update(ctx, service.UpdateTaskCommand{
			ID:         s.rootB.ID,
			TaskFields: service.TaskFields{Name: "x"},
			ParentID:   &missing,
		})
		assert.ErrorIs(t, err, service.ErrParentTaskNotFound)
	})

	t.Run("parent is a sub-task", func(t *testing.T) {
		f, s := setup(t)
		f.expectRollback()
		_, err := f.svc.Update(ctx, service.UpdateTaskCommand{
			ID:         s.rootB.ID,
			TaskFields: service.TaskFields{Name: "x"},
			ParentID:   &s.childOfA.ID,
		})
		assert.ErrorIs(t, err, service.ErrHierarchyTooDeep)
	})

	t.Run("target has children", func(t *testing.T) {
		f, s := setup(t)
		f.expectRollback()
		_, err := f.svc.Update(ctx, service.UpdateTaskCommand{
			ID:         s.rootA.ID,
			TaskFields: service.TaskFields{Name: "x"},
			ParentID:   &s.rootB.ID,
		})
		assert.ErrorIs(t, err, service.ErrHierarchyTooDeep)
	})

	t.Run("own parent", func(t *testing.T) {
		f, s := setup(t)
		_, err := f.svc.Update(ctx, service.UpdateTaskCommand{
			ID:         s.rootA.ID,
			TaskFields: service.TaskFields{Name: "x"},
			ParentID:   &s.rootA.ID,
		})
		assert.ErrorIs(t, err, service.ErrHierarchyTooDeep)
	})

	t.Run("sub-tasks under a sub-task", func(t *testing.T) {
		f, s := setup(t)
		f.expectRollback()
		_, err := f.svc.Update(ctx, service.UpdateTaskCommand{
			ID:         s.childOfA.ID,
			TaskFields: service.TaskFields{Name: "x"},
			SubTasks:   []service.SubTaskInput{{TaskFields: service.TaskFields{Name: "grandchild"}}},
		})
		assert.ErrorIs(t, err, service.ErrHierarchyTooDeep)
	})

	t.Run("upserted task has children", func(t *testing.T) {
		f, s := setup(t)
		f.expectRollback()
		_, err := f.svc.Update(ctx, service.UpdateTaskCommand{
			ID:         s.rootB.ID,
			TaskFields: service.TaskFields{Name: "x"},
			SubTasks:   []service.SubTaskInput{{ID: s.rootA.ID, TaskFields: service.TaskFields{Name: "A"}}},
		})
		assert.ErrorIs(t, err, service.ErrHierarchyTooDeep)
	})

	t.Run("target listed as its own sub-task", func(t *testing.T) {
		f, s := setup(t)
		_, err := f.svc.Update(ctx, service.UpdateTaskCommand{
			ID:         s.rootB.ID,
			TaskFields: service.TaskFields{Name: "x"},
			SubTasks:   []service.SubTaskInput{{ID: s.rootB.ID, TaskFields: service.TaskFields{Name: "B"}}},
		})
		assert.ErrorIs(t, err, service.ErrHierarchyTooDeep)
	})
}

func TestUpdate_Validation(t *testing.T) {
	f := newTaskFixture(t)
	dup := uuid.New()

	_, err := f.svc.Update(context.Background(), service.UpdateTaskCommand{
		TaskFields: service.TaskFields{Name: "x"},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = f.svc.Update(context.Background(), service.UpdateTaskCommand{
		ID:         uuid.New(),
		TaskFields: service.TaskFields{Name: "x"},
		SubTasks: []service.SubTaskInput{
			{ID: dup, TaskFields: service.TaskFields{Name: "a"}},
			{ID: dup, TaskFields: service.TaskFields{Name: "b"}},
		},
	})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "sub_tasks[1].task_id", ve.Field)

	_, err = f.svc.Update(context.Background(), service.UpdateTaskCommand{
		ID:         uuid.New(),
		TaskFields: service.TaskFields{Name: "x"},
		SubTasks:   []service.SubTaskInput{{TaskFields: service.TaskFields{Name: ""}}},
	})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "sub_tasks[0].task_name", ve.Field)
}

func TestUpdate_StoreFailureIsWrapped(t *testing.T) {
	f := newTaskFixture(t)
	target := seedTask("target", baseTime, nil)
	f.tasks.Seed(target)
	f.tasks.UpdateErr = errors.New("serialization failure")

	f.expectRollback()
	_, err := f.svc.Update(context.Background(), service.UpdateTaskCommand{
		ID:         target.ID,
		TaskFields: service.TaskFields{Name: "x"},
	})
	require.Error(t, err)
	assert.Equal(t, "an unexpected error occurred while updating tasks", err.Error())
}
