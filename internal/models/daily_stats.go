package models

import (
	"time"

	"github.com/google/uuid"
)

// DailyStats is the per-user, per-date aggregate row. Raw counters
// (focus_time, pomodoro_sessions, tasks_completed) are only ever increased by
// activity events; the derived fields (efficiency_score, points, level,
// streak) are recomputed from the counters on every write and never updated
// on their own.
type DailyStats struct {
	ID                uuid.UUID `json:"id"`
	UserID            uuid.UUID `json:"user_id"`
	Date              time.Time `json:"date"`
	FocusTime         int       `json:"focus_time"` // minutes
	PomodoroSessions  int       `json:"pomodoro_sessions"`
	TasksCompleted    int       `json:"tasks_completed"`
	EfficiencyScore   int       `json:"efficiency_score"`
	Points            int       `json:"points"`
	Level             int       `json:"level"`
	Streak            int       `json:"streak"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// HasActivity reports whether the day counts toward a streak.
func (s *DailyStats) HasActivity() bool {
	return s.PomodoroSessions > 0 || s.TasksCompleted > 0
}

// ActivityDelta is the incremental change to a day's counters caused by one
// activity event (a completed pomodoro or a completed task). All fields must
// be non-negative.
type ActivityDelta struct {
	FocusMinutes     int `json:"focus_minutes"`
	PomodoroSessions int `json:"pomodoro_sessions"`
	TasksCompleted   int `json:"tasks_completed"`
}

// IsZero reports whether the delta changes nothing.
func (d ActivityDelta) IsZero() bool {
	return d.FocusMinutes == 0 && d.PomodoroSessions == 0 && d.TasksCompleted == 0
}

// CumulativeTotals are all-time sums across every DailyStats row for a user.
// These are the inputs to the leveling and achievement computations; passing
// per-day values instead would break the no-un-earning guarantee.
type CumulativeTotals struct {
	PomodoroSessions int `json:"pomodoro_sessions"`
	TasksCompleted   int `json:"tasks_completed"`
	FocusMinutes     int `json:"focus_minutes"`
	StreakDays       int `json:"streak_days"`
}
