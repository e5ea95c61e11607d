package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskhub-api/internal/domain"
)

// SubTaskView is the read projection of a sub-task. It has no SubTasks field:
// a sub-task cannot have children.
type SubTaskView struct {
	ID             uuid.UUID         `json:"task_id"`
	Name           string            `json:"task_name"`
	Description    *string           `json:"description,omitempty"`
	Remarks        *string           `json:"remarks,omitempty"`
	Status         domain.TaskStatus `json:"status"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      *time.Time        `json:"updated_at,omitempty"`
	UserID         *string           `json:"user_id,omitempty"`
	CreatedByUser  *string           `json:"created_by_user,omitempty"`
	DueDate        *time.Time        `json:"due_date,omitempty"`
	SubmissionDate *time.Time        `json:"submission_date,omitempty"`
	ReviewDate     *time.Time        `json:"review_date,omitempty"`
	CompletionDate *time.Time        `json:"completion_date,omitempty"`
	IsComplete     bool              `json:"is_complete"`
	ParentID       *uuid.UUID        `json:"parent_task_id,omitempty"`
}

// TaskView is the read projection of a top-level task and its sub-tasks.
type TaskView struct {
	SubTaskView
	SubTasks []SubTaskView `json:"sub_tasks"`
}

// TaskPage is one page of top-level tasks.
type TaskPage struct {
	Items      []TaskView `json:"items"`
	TotalCount int        `json:"total_count"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	TotalPages int        `json:"total_pages"`
}

func newSubTaskView(t *domain.Task) SubTaskView {
	return SubTaskView{
		ID:             t.ID,
		Name:           t.Name,
		Description:    t.Description,
		Remarks:        t.Remarks,
		Status:         t.Status,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
		UserID:         t.UserID,
		CreatedByUser:  t.CreatedByUser,
		DueDate:        t.DueDate,
		SubmissionDate: t.SubmissionDate,
		ReviewDate:     t.ReviewDate,
		CompletionDate: t.CompletionDate,
		IsComplete:     t.IsComplete,
		ParentID:       t.ParentID,
	}
}

func newTaskView(tree domain.TaskTree) TaskView {
	view := TaskView{
		SubTaskView: newSubTaskView(tree.Task),
		SubTasks:    make([]SubTaskView, 0, len(tree.SubTasks)),
	}
	for _, sub := range tree.SubTasks {
		view.SubTasks = append(view.SubTasks, newSubTaskView(sub))
	}
	return view
}

func newTaskViews(trees []domain.TaskTree) []TaskView {
	views := make([]TaskView, 0, len(trees))
	for _, tree := range trees {
		views = append(views, newTaskView(tree))
	}
	return views
}
