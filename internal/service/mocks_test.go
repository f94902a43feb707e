package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/chepyr/go-task-manager/internal/db"
	"github.com/chepyr/go-task-manager/internal/models"
)

type MockUserRepository struct {
	users     map[string]*models.User
	order     []string
	createErr error
	getErr    error
	mutex     sync.Mutex
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[string]*models.User)}
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.createErr != nil {
		return m.createErr
	}
	if _, exists := m.users[user.Email]; exists {
		return db.ErrDuplicateEmail
	}
	user.ID = fmt.Sprintf("user-%d", len(m.order)+1)
	stored := *user
	m.users[user.Email] = &stored
	m.order = append(m.order, user.Email)
	return nil
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.getErr != nil {
		return nil, m.getErr
	}
	user, exists := m.users[email]
	if !exists {
		return nil, db.ErrNotFound
	}
	found := *user
	return &found, nil
}

func (m *MockUserRepository) List(ctx context.Context) ([]*models.User, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	users := []*models.User{}
	for _, email := range m.order {
		user := *m.users[email]
		users = append(users, &user)
	}
	return users, nil
}

// MockTaskRepository keeps tasks in memory. Ids look like "task-N"; anything
// without that prefix is treated as malformed.
type MockTaskRepository struct {
	tasks     map[string]*models.Task
	order     []string
	createErr error
	mutex     sync.Mutex
}

func NewMockTaskRepository() *MockTaskRepository {
	return &MockTaskRepository{tasks: make(map[string]*models.Task)}
}

func cloneTask(task *models.Task) *models.Task {
	c := *task
	c.AssignedTo = slices.Clone(task.AssignedTo)
	c.Timeline = slices.Clone(task.Timeline)
	return &c
}

func (m *MockTaskRepository) lookup(id string) (*models.Task, error) {
	if !strings.HasPrefix(id, "task-") {
		return nil, db.ErrInvalidID
	}
	task, ok := m.tasks[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return task, nil
}

func (m *MockTaskRepository) Create(ctx context.Context, task *models.Task) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.createErr != nil {
		return m.createErr
	}
	task.ID = fmt.Sprintf("task-%d", len(m.order)+1)
	m.tasks[task.ID] = cloneTask(task)
	m.order = append(m.order, task.ID)
	return nil
}

func (m *MockTaskRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	task, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	return cloneTask(task), nil
}

func (m *MockTaskRepository) List(ctx context.Context, filter models.TaskFilter) ([]*models.Task, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	tasks := []*models.Task{}
	for _, id := range m.order {
		task, ok := m.tasks[id]
		if !ok {
			continue
		}
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && string(task.Priority) != filter.Priority {
			continue
		}
		if filter.DueDate != "" && task.DueDate != filter.DueDate {
			continue
		}
		if filter.AssignedTo != "" && !task.IsAssignedTo(filter.AssignedTo) {
			continue
		}
		tasks = append(tasks, cloneTask(task))
	}
	return tasks, nil
}

func (m *MockTaskRepository) ListAssignedTo(ctx context.Context, userID string) ([]*models.Task, error) {
	return m.List(ctx, models.TaskFilter{AssignedTo: userID})
}

func (m *MockTaskRepository) UpdateStatus(ctx context.Context, id string, entry models.TimelineEntry) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	task, err := m.lookup(id)
	if err != nil {
		return err
	}
	task.Status = entry.Status
	task.Timeline = append(task.Timeline, entry)
	return nil
}

func (m *MockTaskRepository) Delete(ctx context.Context, id string) (*models.Task, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	task, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	delete(m.tasks, id)
	return task, nil
}

type stubTokens struct {
	err error
}

func (s stubTokens) Issue(user *models.User) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "token-for-" + user.ID, nil
}

var errStore = errors.New("store is down")
