package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/chepyr/go-task-manager/internal/models"
	"github.com/google/uuid"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const selectTasks = `SELECT t.id, t.title, t.description, t.priority, t.status,
 t.created_by, t.due_date, t.created_at FROM tasks t`

type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	if _, err := uuid.Parse(task.CreatedBy); err != nil {
		return fmt.Errorf("created_by %q: %w", task.CreatedBy, ErrInvalidID)
	}
	for _, assignee := range task.AssignedTo {
		if _, err := uuid.Parse(assignee); err != nil {
			return fmt.Errorf("assigned_to %q: %w", assignee, ErrInvalidID)
		}
	}

	id := uuid.New().String()
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO tasks (id, title, description, priority, status, created_by, due_date, created_at)
	 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := tx.ExecContext(ctx, query, id, task.Title, task.Description, string(task.Priority),
		task.Status, task.CreatedBy, task.DueDate, task.CreatedAt); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}

	for i, assignee := range task.AssignedTo {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO task_assignees (task_id, seq, user_id) VALUES ($1, $2, $3)`,
			id, i, assignee); err != nil {
			return fmt.Errorf("insert assignee: %w", err)
		}
	}
	for i, entry := range task.Timeline {
		if err := insertTimelineEntry(ctx, tx, id, i, entry); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	task.ID = id
	return nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	return getTask(ctx, r.db, id)
}

func (r *TaskRepository) List(ctx context.Context, filter models.TaskFilter) ([]*models.Task, error) {
	var conditions []string
	var args []any
	where := func(condition string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if filter.Status != "" {
		where("t.status = $%d", filter.Status)
	}
	if filter.AssignedTo != "" {
		if _, err := uuid.Parse(filter.AssignedTo); err != nil {
			return []*models.Task{}, nil
		}
		where("EXISTS (SELECT 1 FROM task_assignees a WHERE a.task_id = t.id AND a.user_id = $%d)",
			filter.AssignedTo)
	}
	if filter.Priority != "" {
		where("t.priority = $%d", filter.Priority)
	}
	if filter.DueDate != "" {
		where("t.due_date = $%d", filter.DueDate)
	}

	query := selectTasks
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY t.created_at, t.id"
	return queryTasks(ctx, r.db, query, args...)
}

func (r *TaskRepository) ListAssignedTo(ctx context.Context, userID string) ([]*models.Task, error) {
	return r.List(ctx, models.TaskFilter{AssignedTo: userID})
}

func (r *TaskRepository) UpdateStatus(ctx context.Context, id string, entry models.TimelineEntry) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("task id %q: %w", id, ErrInvalidID)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `UPDATE tasks SET status = $1 WHERE id = $2`, entry.Status, id)
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	var seq int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM task_timeline WHERE task_id = $1`, id).Scan(&seq); err != nil {
		return fmt.Errorf("count timeline: %w", err)
	}
	if err := insertTimelineEntry(ctx, tx, id, seq, entry); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *TaskRepository) Delete(ctx context.Context, id string) (*models.Task, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	task, err := getTask(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	for _, query := range []string{
		`DELETE FROM task_assignees WHERE task_id = $1`,
		`DELETE FROM task_timeline WHERE task_id = $1`,
		`DELETE FROM tasks WHERE id = $1`,
	} {
		if _, err := tx.ExecContext(ctx, query, id); err != nil {
			return nil, fmt.Errorf("delete task: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return task, nil
}

func getTask(ctx context.Context, q queryer, id string) (*models.Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("task id %q: %w", id, ErrInvalidID)
	}
	tasks, err := queryTasks(ctx, q, selectTasks+" WHERE t.id = $1", id)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, ErrNotFound
	}
	return tasks[0], nil
}

// queryTasks runs a task query and then loads the assignees and timeline of
// each row. The rows are closed before the child queries run so that a
// single-connection pool (sqlite) is never asked for a second connection.
func queryTasks(ctx context.Context, q queryer, query string, args ...any) ([]*models.Task, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	tasks := []*models.Task{}
	for rows.Next() {
		task := &models.Task{}
		var priority string
		if err := rows.Scan(&task.ID, &task.Title, &task.Description, &priority, &task.Status,
			&task.CreatedBy, &task.DueDate, &task.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan task: %w", err)
		}
		task.Priority = models.Priority(priority)
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, task := range tasks {
		if err := loadAssignees(ctx, q, task); err != nil {
			return nil, err
		}
		if err := loadTimeline(ctx, q, task); err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

func loadAssignees(ctx context.Context, q queryer, task *models.Task) error {
	rows, err := q.QueryContext(ctx,
		`SELECT user_id FROM task_assignees WHERE task_id = $1 ORDER BY seq`, task.ID)
	if err != nil {
		return fmt.Errorf("list assignees: %w", err)
	}
	defer rows.Close()

	task.AssignedTo = []string{}
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return fmt.Errorf("scan assignee: %w", err)
		}
		task.AssignedTo = append(task.AssignedTo, userID)
	}
	return rows.Err()
}

func loadTimeline(ctx context.Context, q queryer, task *models.Task) error {
	rows, err := q.QueryContext(ctx,
		`SELECT status, updated_by, note, created_at FROM task_timeline
		 WHERE task_id = $1 ORDER BY seq, created_at`, task.ID)
	if err != nil {
		return fmt.Errorf("list timeline: %w", err)
	}
	defer rows.Close()

	task.Timeline = []models.TimelineEntry{}
	for rows.Next() {
		var entry models.TimelineEntry
		if err := rows.Scan(&entry.Status, &entry.UpdatedBy, &entry.Note, &entry.Timestamp); err != nil {
			return fmt.Errorf("scan timeline entry: %w", err)
		}
		task.Timeline = append(task.Timeline, entry)
	}
	return rows.Err()
}

func insertTimelineEntry(ctx context.Context, q queryer, taskID string, seq int, entry models.TimelineEntry) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO task_timeline (task_id, seq, status, updated_by, note, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		taskID, seq, entry.Status, entry.UpdatedBy, entry.Note, entry.Timestamp)
	if err != nil {
		return fmt.Errorf("insert timeline entry: %w", err)
	}
	return nil
}
