package metrics

import (
	"math"

	"github.com/boostday/boostday/internal/models"
)

// AchievementStatus is the evaluated state of one catalog entry for a user.
type AchievementStatus struct {
	Achievement
	Earned   bool    `json:"earned"`
	Progress float64 `json:"progress"` // 0-100
}

// EvaluateAchievements evaluates the catalog against all-time cumulative
// totals. earned is metric >= threshold; progress is the linear ratio capped
// at 100. The function is deterministic with no hidden state, and because the
// inputs are cumulative (never per-day values) an earned achievement can
// never flip back to unearned.
func EvaluateAchievements(totals models.CumulativeTotals, catalog Catalog) []AchievementStatus {
	statuses := make([]AchievementStatus, 0, len(catalog))

	for _, a := range catalog {
		value := metricValue(totals, a.Metric)
		statuses = append(statuses, AchievementStatus{
			Achievement: a,
			Earned:      value >= a.Threshold,
			Progress:    math.Min(100, value/a.Threshold*100),
		})
	}

	return statuses
}

// metricValue extracts the cumulative value an achievement is measured
// against. Focus-hours thresholds are expressed in hours, so the minute
// counter is converted here.
func metricValue(t models.CumulativeTotals, m Metric) float64 {
	var v float64
	switch m {
	case MetricPomodoroSessions:
		v = float64(t.PomodoroSessions)
	case MetricTasksCompleted:
		v = float64(t.TasksCompleted)
	case MetricFocusHours:
		v = float64(t.FocusMinutes) / 60
	case MetricStreakDays:
		v = float64(t.StreakDays)
	}
	if v < 0 {
		return 0
	}
	return v
}
