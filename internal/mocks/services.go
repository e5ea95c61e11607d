package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/taskhub-api/internal/domain"
	"github.com/phrazzld/taskhub-api/internal/service"
	"github.com/stretchr/testify/mock"
)

// TestifyMockTaskService is a mock of service.TaskService for use with testify/mock
type TestifyMockTaskService struct {
	mock.Mock
}

var _ service.TaskService = (*TestifyMockTaskService)(nil)

func (m *TestifyMockTaskService) GetAll(ctx context.Context) ([]service.TaskView, error) {
	args := m.Called(ctx)
	views, _ := args.Get(0).([]service.TaskView)
	return views, args.Error(1)
}

func (m *TestifyMockTaskService) GetByID(ctx context.Context, id uuid.UUID) (*service.TaskView, error) {
	args := m.Called(ctx, id)
	view, _ := args.Get(0).(*service.TaskView)
	return view, args.Error(1)
}

func (m *TestifyMockTaskService) GetByUserID(ctx context.Context, userID string) ([]service.TaskView, error) {
	args := m.Called(ctx, userID)
	views, _ := args.Get(0).([]service.TaskView)
	return views, args.Error(1)
}

func (m *TestifyMockTaskService) Create(ctx context.Context, cmd service.CreateTaskCommand) (*service.TaskView, error) {
	args := m.Called(ctx, cmd)
	view, _ := args.Get(0).(*service.TaskView)
	return view, args.Error(1)
}

func (m *TestifyMockTaskService) Update(ctx context.Context, cmd service.UpdateTaskCommand) (*service.TaskView, error) {
	args := m.Called(ctx, cmd)
	view, _ := args.Get(0).(*service.TaskView)
	return view, args.Error(1)
}

func (m *TestifyMockTaskService) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *TestifyMockTaskService) ListPaginated(ctx context.Context, page, pageSize int) (*service.TaskPage, error) {
	args := m.Called(ctx, page, pageSize)
	result, _ := args.Get(0).(*service.TaskPage)
	return result, args.Error(1)
}

// TestifyMockAuthService is a mock of service.AuthService for use with testify/mock
type TestifyMockAuthService struct {
	mock.Mock
}

var _ service.AuthService = (*TestifyMockAuthService)(nil)

func (m *TestifyMockAuthService) Register(ctx context.Context, cmd service.RegisterCommand) (*domain.User, error) {
	args := m.Called(ctx, cmd)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *TestifyMockAuthService) Login(ctx context.Context, username, password string) (*service.LoginResult, error) {
	args := m.Called(ctx, username, password)
	result, _ := args.Get(0).(*service.LoginResult)
	return result, args.Error(1)
}

func (m *TestifyMockAuthService) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}
