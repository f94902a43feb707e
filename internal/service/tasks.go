package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chepyr/go-task-manager/internal/db"
	"github.com/chepyr/go-task-manager/internal/models"
)

type TaskService struct {
	tasks db.TaskRepositoryInterface
	now   func() time.Time
}

func NewTaskService(tasks db.TaskRepositoryInterface) *TaskService {
	return &TaskService{tasks: tasks, now: time.Now}
}

// CreateTaskInput mirrors the create request body. Pointer fields tell a
// missing field apart from one sent empty; only missing ones are rejected.
type CreateTaskInput struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Priority    *string   `json:"priority"`
	DueDate     *string   `json:"due_date"`
	AssignedTo  *[]string `json:"assigned_to"`
	Status      *string   `json:"status"`
	Note        *string   `json:"note"`
}

func (in CreateTaskInput) missingField() string {
	fields := []struct {
		name  string
		value *string
	}{
		{"title", in.Title},
		{"description", in.Description},
		{"priority", in.Priority},
		{"due_date", in.DueDate},
	}
	for _, f := range fields {
		if f.value == nil {
			return f.name
		}
	}
	if in.AssignedTo == nil {
		return "assigned_to"
	}
	return ""
}

// CreateTask stores a new task with a single "created" timeline entry.
// Assignee ids are stored as given; they are not checked against the users.
func (s *TaskService) CreateTask(ctx context.Context, caller Caller, input CreateTaskInput) (*models.Task, error) {
	if err := Authorize(caller, ActionCreateTask, nil); err != nil {
		return nil, err
	}
	if field := input.missingField(); field != "" {
		return nil, newError(ErrValidation, "Missing field %s", field)
	}
	priority := models.Priority(*input.Priority)
	if !priority.Valid() {
		return nil, newError(ErrValidation, "Invalid priority")
	}

	status := models.StatusPending
	if input.Status != nil {
		status = *input.Status
	}
	note := models.CreatedNote
	if input.Note != nil {
		note = *input.Note
	}

	now := s.now().UTC()
	task := &models.Task{
		Title:       *input.Title,
		Description: *input.Description,
		Priority:    priority,
		Status:      status,
		AssignedTo:  append([]string{}, (*input.AssignedTo)...),
		CreatedBy:   caller.ID,
		DueDate:     *input.DueDate,
		Timeline: []models.TimelineEntry{{
			Status:    status,
			UpdatedBy: caller.ID,
			Note:      note,
			Timestamp: now,
		}},
		CreatedAt: now,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		if errors.Is(err, db.ErrInvalidID) {
			return nil, newError(ErrValidation, "Invalid assigned_to id")
		}
		return nil, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

// ListTasks returns every task matching filter. Admins only; workers use
// MyTasks.
func (s *TaskService) ListTasks(ctx context.Context, caller Caller, filter models.TaskFilter) ([]*models.Task, error) {
	if err := Authorize(caller, ActionListTasks, nil); err != nil {
		return nil, err
	}
	tasks, err := s.tasks.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) MyTasks(ctx context.Context, caller Caller) ([]*models.Task, error) {
	if err := Authorize(caller, ActionViewAssigned, nil); err != nil {
		return nil, err
	}
	tasks, err := s.tasks.ListAssignedTo(ctx, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("list assigned tasks: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) TaskDetail(ctx context.Context, caller Caller, id string) (*models.Task, error) {
	if err := Authorize(caller, ActionViewTask, nil); err != nil {
		return nil, err
	}
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, taskLookupError(err)
	}
	return task, nil
}

// UpdateStatus overwrites the status and appends a timeline entry. Repeated
// identical calls append repeated entries.
func (s *TaskService) UpdateStatus(ctx context.Context, caller Caller, id, status, note string) (*models.Task, error) {
	if status == "" {
		return nil, newError(ErrValidation, "Missing status")
	}
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, taskLookupError(err)
	}
	if err := Authorize(caller, ActionUpdateStatus, task); err != nil {
		return nil, err
	}

	entry := models.TimelineEntry{
		Status:    status,
		UpdatedBy: caller.ID,
		Note:      note,
		Timestamp: s.now().UTC(),
	}
	if err := s.tasks.UpdateStatus(ctx, task.ID, entry); err != nil {
		return nil, taskLookupError(err)
	}
	task.Status = status
	task.Timeline = append(task.Timeline, entry)
	return task, nil
}

// DeleteTask checks the caller's role before looking the task up, so workers
// get 403 whether or not the task exists.
func (s *TaskService) DeleteTask(ctx context.Context, caller Caller, id string) (*models.Task, error) {
	if err := Authorize(caller, ActionDeleteTask, nil); err != nil {
		return nil, err
	}
	task, err := s.tasks.Delete(ctx, id)
	if err != nil {
		return nil, taskLookupError(err)
	}
	return task, nil
}

// taskLookupError reports malformed ids as missing tasks so callers cannot
// check the id format.
func taskLookupError(err error) error {
	if errors.Is(err, db.ErrNotFound) || errors.Is(err, db.ErrInvalidID) {
		return newError(ErrNotFound, "Task not found")
	}
	return fmt.Errorf("task store: %w", err)
}
