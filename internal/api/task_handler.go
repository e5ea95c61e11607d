package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/taskhub-api/internal/api/shared"
	"github.com/phrazzld/taskhub-api/internal/pagination"
	"github.com/phrazzld/taskhub-api/internal/platform/logger"
	"github.com/phrazzld/taskhub-api/internal/service"
)

// TaskHandler handles task-related HTTP requests.
type TaskHandler struct {
	taskService service.TaskService
	logger      *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskService service.TaskService, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{
		taskService: taskService,
		logger:      logger.With(slog.String("component", "task_handler")),
	}
}

// ListTasks handles GET /api/tasks.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	views, err := h.taskService.GetAll(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	respondJSON(w, r, http.StatusOK, views)
}

// ListTasksPage handles GET /api/tasks/page?page=&page_size=.
func (h *TaskHandler) ListTasksPage(w http.ResponseWriter, r *http.Request) {
	page, err := getQueryInt(r, "page", 1)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	pageSize, err := getQueryInt(r, "page_size", pagination.DefaultPageSize)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	result, err := h.taskService.ListPaginated(r.Context(), page, pageSize)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	respondJSON(w, r, http.StatusOK, result)
}

// GetTask handles GET /api/tasks/{id}.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	view, err := h.taskService.GetByID(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	respondJSON(w, r, http.StatusOK, view)
}

// ListUserTasks handles GET /api/users/{userID}/tasks.
func (h *TaskHandler) ListUserTasks(w http.ResponseWriter, r *http.Request) {
	userID, err := getPathUUID(r, "userID")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	views, err := h.taskService.GetByUserID(r.Context(), userID.String())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	respondJSON(w, r, http.StatusOK, views)
}

// CreateTask handles POST /api/tasks. An absent user_id or created_by_user
// defaults to the authenticated caller.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req CreateTaskRequest
	if err := decodeAndValidate(r, &req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	cmd := req.toCommand()
	if userID, ok := getUserIDFromContext(r); ok && cmd.UserID == nil {
		owner := userID.String()
		cmd.UserID = &owner
	}
	if username := shared.UsernameFromContext(r.Context()); username != "" && cmd.CreatedByUser == nil {
		cmd.CreatedByUser = &username
	}

	view, err := h.taskService.Create(r.Context(), cmd)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Debug("task created via API", slog.String("task_id", view.ID.String()))
	w.Header().Set("Location", "/api/tasks/"+view.ID.String())
	respondJSON(w, r, http.StatusCreated, view)
}

// UpdateTask handles PUT /api/tasks.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var req UpdateTaskRequest
	if err := decodeAndValidate(r, &req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	view, err := h.taskService.Update(r.Context(), req.toCommand())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	respondJSON(w, r, http.StatusOK, view)
}

// DeleteTask handles DELETE /api/tasks/{id}.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	deleted, err := h.taskService.Delete(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if !deleted {
		HandleAPIError(w, r, service.ErrTaskNotFound, "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	shared.RespondWithJSON(w, r, status, data)
}
