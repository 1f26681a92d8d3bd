// Package metrics is the productivity metrics engine: the single place where
// efficiency scores, streaks, points/levels, and achievement progress are
// derived from raw activity counters. Every surface (dashboard, analytics,
// achievements) calls these functions instead of re-deriving the numbers.
//
// All functions here are pure: no I/O, no clocks, no hidden state. Malformed
// numeric input is clamped, never rejected.
package metrics

import "math"

const (
	// TaskWeight is the share of the score carried by the planned-vs-completed ratio.
	TaskWeight = 0.4
	// PomodoroWeight is the share carried by session-count consistency.
	PomodoroWeight = 0.3
	// FocusWeight is the share carried by focus-time quality.
	FocusWeight = 0.3

	// IdealPomodoros is the session count that scores a full consistency component.
	IdealPomodoros = 10
	// IdealFocusHours is the focus time that scores a full quality component.
	IdealFocusHours = 5.0

	// UnplannedTaskCredit caps the flat credit for completing tasks on a day
	// with nothing planned.
	UnplannedTaskCredit = 40.0
)

// DayCounters are one day's raw inputs to the efficiency score.
// TasksPlanned is the number of calendar tasks scheduled that day; the other
// three come straight from the DailyStats row.
type DayCounters struct {
	TasksPlanned     int
	TasksCompleted   int
	PomodoroSessions int
	FocusMinutes     int
}

// Efficiency maps a day's counters to a 0-100 score.
//
// The score is built from three independently gated components: a component
// with no underlying data is skipped entirely, not zero-filled, so a day with
// only pomodoro activity is judged on pomodoros alone. A day with no activity
// and no planned tasks scores exactly 0.
func Efficiency(c DayCounters) int {
	var score float64
	applied := 0

	if c.TasksPlanned > 0 {
		rate := math.Min(100, float64(c.TasksCompleted)/float64(c.TasksPlanned)*100)
		score += rate * TaskWeight
		applied++
	} else if c.TasksCompleted > 0 {
		// Nothing was planned but tasks still got done: flat credit,
		// already scaled, not weighted again.
		score += math.Min(UnplannedTaskCredit, float64(c.TasksCompleted)*10)
		applied++
	}

	if c.PomodoroSessions > 0 {
		consistency := math.Max(0, 100-math.Abs(float64(c.PomodoroSessions)-IdealPomodoros)*10)
		score += consistency * PomodoroWeight
		applied++
	}

	if c.FocusMinutes > 0 {
		hours := float64(c.FocusMinutes) / 60
		quality := math.Max(0, 100-math.Abs(hours-IdealFocusHours)*20)
		score += quality * FocusWeight
		applied++
	}

	if applied == 0 {
		return 0
	}

	return int(math.Round(math.Min(100, math.Max(0, score))))
}
