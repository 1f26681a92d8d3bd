package metrics

import (
	"reflect"
	"testing"

	"github.com/boostday/boostday/internal/models"
)

func TestDefaultCatalogValid(t *testing.T) {
	t.Parallel()

	catalog := DefaultCatalog()
	if err := catalog.Validate(); err != nil {
		t.Fatalf("default catalog failed validation: %v", err)
	}
	if len(catalog) != 17 {
		t.Errorf("expected 17 catalog entries, got %d", len(catalog))
	}
}

func TestParseCatalogRejectsBadEntries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "empty catalog",
			yaml: "achievements: []",
		},
		{
			name: "unknown metric",
			yaml: `
achievements:
  - id: x
    title: X
    rarity: common
    metric: keystrokes
    threshold: 1
`,
		},
		{
			name: "zero threshold",
			yaml: `
achievements:
  - id: x
    title: X
    rarity: common
    metric: tasks_completed
    threshold: 0
`,
		},
		{
			name: "duplicate id",
			yaml: `
achievements:
  - id: x
    title: X
    rarity: common
    metric: tasks_completed
    threshold: 1
  - id: x
    title: X again
    rarity: rare
    metric: streak_days
    threshold: 2
`,
		},
		{
			name: "unknown rarity",
			yaml: `
achievements:
  - id: x
    title: X
    rarity: mythic
    metric: streak_days
    threshold: 1
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := ParseCatalog([]byte(tt.yaml)); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestEvaluateAchievements(t *testing.T) {
	t.Parallel()

	catalog := Catalog{
		{ID: "ten_sessions", Title: "Ten", Rarity: RarityCommon, Points: 100, Metric: MetricPomodoroSessions, Threshold: 10},
		{ID: "five_focus_hours", Title: "Five Hours", Rarity: RarityCommon, Points: 150, Metric: MetricFocusHours, Threshold: 5},
		{ID: "week_streak", Title: "Week", Rarity: RarityRare, Points: 400, Metric: MetricStreakDays, Threshold: 7},
		{ID: "fifty_tasks", Title: "Fifty", Rarity: RarityRare, Points: 300, Metric: MetricTasksCompleted, Threshold: 50},
	}

	totals := models.CumulativeTotals{
		PomodoroSessions: 10,  // exactly at threshold
		FocusMinutes:     150, // 2.5h of 5h
		StreakDays:       3,   // 3 of 7
		TasksCompleted:   100, // double the threshold
	}

	statuses := EvaluateAchievements(totals, catalog)
	if len(statuses) != len(catalog) {
		t.Fatalf("expected %d statuses, got %d", len(catalog), len(statuses))
	}

	assert := func(id string, earned bool, progress float64) {
		t.Helper()
		for _, s := range statuses {
			if s.ID != id {
				continue
			}
			if s.Earned != earned {
				t.Errorf("%s: earned = %v, expected %v", id, s.Earned, earned)
			}
			if s.Progress != progress {
				t.Errorf("%s: progress = %v, expected %v", id, s.Progress, progress)
			}
			return
		}
		t.Errorf("%s: not found in statuses", id)
	}

	assert("ten_sessions", true, 100)
	assert("five_focus_hours", false, 50)
	assert("week_streak", false, 3.0/7.0*100)
	assert("fifty_tasks", true, 100) // progress caps at 100
}

func TestEvaluateAchievementsDeterministic(t *testing.T) {
	t.Parallel()

	totals := models.CumulativeTotals{
		PomodoroSessions: 42,
		TasksCompleted:   17,
		FocusMinutes:     901,
		StreakDays:       4,
	}

	first := EvaluateAchievements(totals, DefaultCatalog())
	second := EvaluateAchievements(totals, DefaultCatalog())
	if !reflect.DeepEqual(first, second) {
		t.Error("evaluating the same totals twice produced different results")
	}
}

func TestEvaluateAchievementsNegativeTotals(t *testing.T) {
	t.Parallel()

	totals := models.CumulativeTotals{PomodoroSessions: -1, FocusMinutes: -60}
	for _, s := range EvaluateAchievements(totals, DefaultCatalog()) {
		if s.Earned {
			t.Errorf("%s: earned with negative totals", s.ID)
		}
		if s.Progress != 0 {
			t.Errorf("%s: progress = %v with negative totals, expected 0", s.ID, s.Progress)
		}
	}
}
