package metrics

import "github.com/boostday/boostday/internal/models"

const (
	// PointsPerSession is awarded for each completed work session.
	PointsPerSession = 50
	// PointsPerTask is awarded for each completed task.
	PointsPerTask = 20
	// PointsPerStreakDay is awarded for each day of the current streak.
	PointsPerStreakDay = 100
	// PointsPerLevel is the point cost of each level.
	PointsPerLevel = 500
)

// Progression is the points/level snapshot written through to the current
// day's stats row on every activity event. It is a cache of this formula over
// the latest cumulative totals, never an independent value.
type Progression struct {
	Points int `json:"points"`
	Level  int `json:"level"`
}

// PointsAndLevel converts all-time cumulative totals into points and a level.
// The function is monotonic: more activity never lowers either output.
// Negative totals are clamped to zero before scoring.
func PointsAndLevel(t models.CumulativeTotals) Progression {
	points := clampNonNegative(t.PomodoroSessions)*PointsPerSession +
		clampNonNegative(t.TasksCompleted)*PointsPerTask +
		clampNonNegative(t.StreakDays)*PointsPerStreakDay

	return Progression{
		Points: points,
		Level:  points/PointsPerLevel + 1,
	}
}

func clampNonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
