package db

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is written to run unchanged on postgres and sqlite.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		priority TEXT NOT NULL,
		status TEXT NOT NULL,
		created_by TEXT NOT NULL,
		due_date TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS task_assignees (
		task_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		user_id TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS task_timeline (
		task_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		status TEXT NOT NULL,
		updated_by TEXT NOT NULL,
		note TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status)`,
	`CREATE INDEX IF NOT EXISTS idx_task_assignees_task_id ON task_assignees(task_id)`,
	`CREATE INDEX IF NOT EXISTS idx_task_assignees_user_id ON task_assignees(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_task_timeline_task_id ON task_timeline(task_id)`,
}

// Migrate creates the tables used by the SQL repositories if they are missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
