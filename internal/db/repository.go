package db

import (
	"context"

	"github.com/chepyr/go-task-manager/internal/models"
)

// defines methods for user db operations
type UserRepositoryInterface interface {
	// Create stores user and sets user.ID. Returns ErrDuplicateEmail when the
	// email is taken.
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
}

// defines methods for task db operations
//
// Ids the backend cannot parse yield ErrInvalidID; ids that parse but match
// nothing yield ErrNotFound.
type TaskRepositoryInterface interface {
	// Create stores task with its timeline and assignees and sets task.ID.
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id string) (*models.Task, error)
	List(ctx context.Context, filter models.TaskFilter) ([]*models.Task, error)
	ListAssignedTo(ctx context.Context, userID string) ([]*models.Task, error)
	// UpdateStatus sets the status to entry.Status and appends entry to the
	// timeline in one atomic step.
	UpdateStatus(ctx context.Context, id string, entry models.TimelineEntry) error
	// Delete removes the task and returns it as it was before removal.
	Delete(ctx context.Context, id string) (*models.Task, error)
}
