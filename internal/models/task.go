package models

import (
	"slices"
	"time"
)

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Status is free text; these are only the values the API fills in itself.
const (
	StatusPending = "Pending"
	CreatedNote   = "Task created"
)

type TimelineEntry struct {
	Status    string    `json:"status"`
	UpdatedBy string    `json:"updated_by"`
	Note      string    `json:"note"`
	Timestamp time.Time `json:"timestamp"`
}

type Task struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Priority    Priority        `json:"priority"`
	Status      string          `json:"status"`
	AssignedTo  []string        `json:"assigned_to"`
	CreatedBy   string          `json:"created_by"`
	DueDate     string          `json:"due_date"`
	Timeline    []TimelineEntry `json:"timeline"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (t *Task) IsAssignedTo(userID string) bool {
	return slices.Contains(t.AssignedTo, userID)
}

// TaskFilter holds optional exact-match predicates; empty fields are ignored.
type TaskFilter struct {
	Status     string
	AssignedTo string
	Priority   string
	DueDate    string
}
