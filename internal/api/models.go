package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskhub-api/internal/domain"
	"github.com/phrazzld/taskhub-api/internal/service"
)

// Auth request/response structures

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Username  string `json:"username"   validate:"required,max=100"`
	Password  string `json:"password"   validate:"required,min=8,max=72"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name"  validate:"max=100"`
}

// RegisterResponse is returned after a successful registration.
type RegisterResponse struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse defines the successful response of the login endpoint.
type LoginResponse struct {
	// Token is the JWT used for API authorization
	Token     string    `json:"token"`
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	// ExpiresAt is the RFC 3339 timestamp when the token expires
	ExpiresAt string `json:"expires_at"`
}

// UserResponse is the public view of a user. It never includes the password hash.
type UserResponse struct {
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		UserID:    u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		CreatedAt: u.CreatedAt,
	}
}

// Task request structures

// TaskFieldsRequest holds the attributes shared by every task payload.
type TaskFieldsRequest struct {
	TaskName       string        `json:"task_name"       validate:"required,max=150"`
	Description    *string       `json:"description"     validate:"omitempty,max=500"`
	Remarks        *string       `json:"remarks"         validate:"omitempty,max=500"`
	Status         string        `json:"status"          validate:"omitempty,oneof=NotDone Pending InProgress InReview Completed Closed"`
	UserID         *string       `json:"user_id"         validate:"omitempty,max=100"`
	CreatedByUser  *string       `json:"created_by_user" validate:"omitempty,max=100"`
	DueDate        *FlexibleTime `json:"due_date"`
	SubmissionDate *FlexibleTime `json:"submission_date"`
	ReviewDate     *FlexibleTime `json:"review_date"`
	CompletionDate *FlexibleTime `json:"completion_date"`
	IsComplete     bool          `json:"is_complete"`
}

func (f TaskFieldsRequest) toFields() service.TaskFields {
	return service.TaskFields{
		Name:           f.TaskName,
		Description:    f.Description,
		Remarks:        f.Remarks,
		Status:         domain.TaskStatus(f.Status),
		UserID:         f.UserID,
		CreatedByUser:  f.CreatedByUser,
		DueDate:        f.DueDate.TimePtr(),
		SubmissionDate: f.SubmissionDate.TimePtr(),
		ReviewDate:     f.ReviewDate.TimePtr(),
		CompletionDate: f.CompletionDate.TimePtr(),
		IsComplete:     f.IsComplete,
	}
}

// CreateTaskRequest is the body of POST /api/tasks.
type CreateTaskRequest struct {
	// TaskID is optional; the server generates one when it is absent.
	TaskID uuid.UUID `json:"task_id"`
	TaskFieldsRequest
	ParentTaskID *uuid.UUID          `json:"parent_task_id"`
	SubTasks     []TaskFieldsRequest `json:"sub_tasks" validate:"omitempty,dive"`
}

func (r CreateTaskRequest) toCommand() service.CreateTaskCommand {
	cmd := service.CreateTaskCommand{
		ID:         r.TaskID,
		TaskFields: r.TaskFieldsRequest.toFields(),
		ParentID:   r.ParentTaskID,
	}
	for _, sub := range r.SubTasks {
		cmd.SubTasks = append(cmd.SubTasks, sub.toFields())
	}
	return cmd
}

// SubTaskRequest is one sub-task entry of an update. A missing or unknown
// task_id creates a new sub-task.
type SubTaskRequest struct {
	TaskID uuid.UUID `json:"task_id"`
	TaskFieldsRequest
}

// UpdateTaskRequest is the body of PUT /api/tasks.
type UpdateTaskRequest struct {
	TaskID uuid.UUID `json:"task_id" validate:"required"`
	TaskFieldsRequest
	ParentTaskID *uuid.UUID       `json:"parent_task_id"`
	SubTasks     []SubTaskRequest `json:"sub_tasks" validate:"omitempty,dive"`
}

func (r UpdateTaskRequest) toCommand() service.UpdateTaskCommand {
	cmd := service.UpdateTaskCommand{
		ID:         r.TaskID,
		TaskFields: r.TaskFieldsRequest.toFields(),
		ParentID:   r.ParentTaskID,
	}
	for _, sub := range r.SubTasks {
		cmd.SubTasks = append(cmd.SubTasks, service.SubTaskInput{
			ID:         sub.TaskID,
			TaskFields: sub.TaskFieldsRequest.toFields(),
		})
	}
	return cmd
}

// Accepted date layouts, tried in order. Zone-less layouts are read in the
// server's local time zone.
var flexibleTimeLayouts = []struct {
	layout string
	zoned  bool
}{
	{time.RFC3339Nano, true},
	{"2006-01-02T15:04:05.999999999", false},
	{"2006-01-02 15:04:05", false},
	{time.DateOnly, false},
}

// FlexibleTime is a request date that accepts RFC 3339 or a zone-less
// date-time or date.
type FlexibleTime struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler. JSON null leaves the value zero.
func (t *FlexibleTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: date must be a string", domain.ErrInvalidFormat)
	}
	parsed, err := ParseFlexibleTime(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// TimePtr returns nil for a nil or zero FlexibleTime.
func (t *FlexibleTime) TimePtr() *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

// ParseFlexibleTime parses s with the first matching accepted layout.
func ParseFlexibleTime(s string) (time.Time, error) {
	for _, l := range flexibleTimeLayouts {
		var (
			parsed time.Time
			err    error
		)
		if l.zoned {
			parsed, err = time.Parse(l.layout, s)
		} else {
			parsed, err = time.ParseInLocation(l.layout, s, time.Local)
		}
		if err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognised date %q", domain.ErrInvalidFormat, s)
}
