package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionMode distinguishes focused work from breaks. Only completed work
// sessions feed the daily stats counters.
type SessionMode string

const (
	SessionModeWork  SessionMode = "work"
	SessionModeBreak SessionMode = "break"
)

// PomodoroSession is one timer run. Rows older than the current day are
// purged by the worker's cleanup job; durable history lives in DailyStats.
type PomodoroSession struct {
	ID          uuid.UUID   `json:"id"`
	UserID      uuid.UUID   `json:"user_id"`
	TaskName    string      `json:"task_name"`
	Mode        SessionMode `json:"mode"`
	Duration    int         `json:"duration"` // planned length, seconds
	Completed   bool        `json:"completed"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

// FocusMinutes returns the whole minutes of focused work this session
// contributes, using the actual elapsed time when completed early.
func (s *PomodoroSession) FocusMinutes() int {
	if s.Mode != SessionModeWork || s.CompletedAt == nil {
		return 0
	}
	elapsed := s.CompletedAt.Sub(s.StartedAt)
	planned := time.Duration(s.Duration) * time.Second
	if elapsed > planned {
		elapsed = planned
	}
	m := int(elapsed.Round(time.Minute) / time.Minute)
	if m < 0 {
		return 0
	}
	return m
}
