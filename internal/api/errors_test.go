package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/taskhub-api/internal/api/shared"
	"github.com/phrazzld/taskhub-api/internal/domain"
	"github.com/phrazzld/taskhub-api/internal/service"
	"github.com/phrazzld/taskhub-api/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signupForm struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"min=8"`
	Status   string `json:"status" validate:"omitempty,oneof=A B"`
}

func validatorErr(t *testing.T, form signupForm) error {
	t.Helper()
	err := shared.ValidateRequest(&form)
	require.Error(t, err)
	return err
}

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid token", auth.ErrInvalidToken, http.StatusUnauthorized},
		{"expired token", fmt.Errorf("validate: %w", auth.ErrExpiredToken), http.StatusUnauthorized},
		{"credentials", service.ErrInvalidCredentials, http.StatusUnauthorized},
		{"task not found", service.ErrTaskNotFound, http.StatusNotFound},
		{"user not found", service.ErrUserNotFound, http.StatusNotFound},
		{"username taken", service.ErrUsernameTaken, http.StatusConflict},
		{"task id taken", service.ErrTaskExists, http.StatusConflict},
		{"domain validation", domain.NewValidationError("task_name", "is required", nil), http.StatusBadRequest},
		{"invalid id", domain.ErrInvalidID, http.StatusBadRequest},
		{"invalid format", domain.ErrInvalidFormat, http.StatusBadRequest},
		{"missing parent", service.ErrParentTaskNotFound, http.StatusBadRequest},
		{"too deep", service.ErrHierarchyTooDeep, http.StatusBadRequest},
		{"request decoding", badRequest("Invalid request format", errors.New("eof")), http.StatusBadRequest},
		{"validator", validatorErr(t, signupForm{Password: "long enough"}), http.StatusBadRequest},
		{"task service fault", service.NewTaskServiceError(service.OpDelete, errors.New("boom")), http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapErrorToStatusCode(tt.err))
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "An unexpected error occurred"},
		{"expired", auth.ErrExpiredToken, "Token expired"},
		{"not yet valid", auth.ErrTokenNotYetValid, "Invalid token"},
		{"task not found", fmt.Errorf("get: %w", service.ErrTaskNotFound), "Task not found"},
		{"parent missing", service.ErrParentTaskNotFound, "Parent task not found"},
		{"too deep", service.ErrHierarchyTooDeep, "Tasks may only be nested one level deep"},
		{"task id taken", service.ErrTaskExists, "Task already exists"},
		{"domain validation", domain.NewValidationError("status", "is not a valid status", nil), "status is not a valid status"},
		{"input error", badRequest("Invalid request format", errors.New("unexpected EOF")), "Invalid request format"},
		{"task service", service.NewTaskServiceError(service.OpUpdate, errors.New("pq: deadlock detected")), "an unexpected error occurred while updating tasks"},
		{"internal detail", errors.New("dial tcp 10.0.0.5:5432: connection refused"), "An unexpected error occurred"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetSafeErrorMessage(tt.err))
		})
	}
}

func TestSanitizeValidationError(t *testing.T) {
	assert.Equal(t, "Invalid username: required field",
		SanitizeValidationError(validatorErr(t, signupForm{Password: "long enough"})))
	assert.Equal(t, "Invalid password: too short",
		SanitizeValidationError(validatorErr(t, signupForm{Username: "ada", Password: "short"})))
	assert.Equal(t, "Invalid status: invalid value",
		SanitizeValidationError(validatorErr(t, signupForm{Username: "ada", Password: "long enough", Status: "C"})))
	assert.Equal(t, "Validation error", SanitizeValidationError(errors.New("other")))
}

func TestHandleAPIError(t *testing.T) {
	t.Run("fallback replaces generic 500 message", func(t *testing.T) {
		rr := httptest.NewRecorder()
		HandleAPIError(rr, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("boom"), "Failed to get user")

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Equal(t, "Failed to get user", decodeError(t, rr).Error)
	})

	t.Run("task service message wins over fallback", func(t *testing.T) {
		rr := httptest.NewRecorder()
		err := service.NewTaskServiceError(service.OpRetrieve, errors.New("boom"))
		HandleAPIError(rr, httptest.NewRequest(http.MethodGet, "/", nil), err, "ignored")

		assert.Equal(t, "an unexpected error occurred while retrieving tasks", decodeError(t, rr).Error)
	})

	t.Run("field reported for validation errors", func(t *testing.T) {
		rr := httptest.NewRecorder()
		err := domain.NewValidationError("sub_tasks[1].task_name", "is required", nil)
		HandleAPIError(rr, httptest.NewRequest(http.MethodGet, "/", nil), err, "")

		resp := decodeError(t, rr)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "sub_tasks[1].task_name", resp.Field)
	})
}
