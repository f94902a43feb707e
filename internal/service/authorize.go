package service

import (
	"github.com/chepyr/go-task-manager/internal/models"
)

// Caller is the identity taken from a verified access token.
type Caller struct {
	ID   string
	Role models.Role
	Name string
}

func (c Caller) IsAdmin() bool {
	return c.Role == models.RoleAdmin
}

type Action int

const (
	ActionListUsers Action = iota
	ActionCreateTask
	ActionListTasks
	ActionDeleteTask
	ActionViewTask
	ActionViewAssigned
	ActionUpdateStatus
)

func (a Action) String() string {
	switch a {
	case ActionListUsers:
		return "list_users"
	case ActionCreateTask:
		return "create_task"
	case ActionListTasks:
		return "list_tasks"
	case ActionDeleteTask:
		return "delete_task"
	case ActionViewTask:
		return "view_task"
	case ActionViewAssigned:
		return "view_assigned"
	case ActionUpdateStatus:
		return "update_status"
	}
	return "unknown"
}

// Authorize decides whether caller may perform action. task is only consulted
// for ActionUpdateStatus, where a worker must be one of its assignees.
func Authorize(caller Caller, action Action, task *models.Task) error {
	switch action {
	case ActionListUsers, ActionCreateTask, ActionDeleteTask:
		if !caller.IsAdmin() {
			return newError(ErrForbidden, "Admin only")
		}
		return nil

	case ActionListTasks:
		if !caller.IsAdmin() {
			return newError(ErrForbidden, "Forbidden")
		}
		return nil

	case ActionViewTask, ActionViewAssigned:
		return nil

	case ActionUpdateStatus:
		if caller.IsAdmin() {
			return nil
		}
		if task == nil || !task.IsAssignedTo(caller.ID) {
			return newError(ErrForbidden, "Not assigned to this task")
		}
		return nil
	}
	return newError(ErrForbidden, "Forbidden")
}
