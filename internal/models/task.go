package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskType categorizes a calendar task.
type TaskType string

const (
	TaskTypeWork     TaskType = "work"
	TaskTypeMeeting  TaskType = "meeting"
	TaskTypePersonal TaskType = "personal"
	TaskTypeLearning TaskType = "learning"
)

// Task is a calendar/planner entry. The metrics engine only reads tasks: the
// count scheduled on a day feeds the planned-vs-completed ratio, and marking
// one complete emits a tasks_completed delta keyed by the task ID.
type Task struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	Title       string     `json:"title"`
	Type        TaskType   `json:"type"`
	StartTime   time.Time  `json:"start_time"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
