package model

import "time"

// Task status values stored in tasks.status.
const (
	TaskTodo       = "todo"
	TaskInProgress = "in_progress"
	TaskReview     = "review"
	TaskDone       = "done"
)

// Task priority values stored in tasks.priority.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// ValidTaskStatus reports whether s is a known task status.
func ValidTaskStatus(s string) bool {
	switch s {
	case TaskTodo, TaskInProgress, TaskReview, TaskDone:
		return true
	}
	return false
}

// ValidTaskPriority reports whether s is a known task priority.
func ValidTaskPriority(s string) bool {
	switch s {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Task represents a row in the `tasks` table.  Every task belongs to a
// project; assignment is optional.  EstimatedHours and DueDate are
// planning hints and carry no enforcement.
type Task struct {
	ID             uint64     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Status         string     `json:"status"`
	Priority       string     `json:"priority"`
	EstimatedHours *float64   `json:"estimated_hours,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	ProjectID      uint64     `json:"project_id"`
	AssignedToID   *uint64    `json:"assigned_to_id,omitempty"`
	CreatedByID    *uint64    `json:"created_by_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
