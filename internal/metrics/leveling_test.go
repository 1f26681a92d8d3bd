package metrics

import (
	"testing"

	"github.com/boostday/boostday/internal/models"
)

func TestPointsAndLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		totals     models.CumulativeTotals
		wantPoints int
		wantLevel  int
	}{
		{
			name:       "no activity is level 1",
			totals:     models.CumulativeTotals{},
			wantPoints: 0,
			wantLevel:  1,
		},
		{
			name:       "ten sessions reach level 2 exactly",
			totals:     models.CumulativeTotals{PomodoroSessions: 10},
			wantPoints: 500,
			wantLevel:  2,
		},
		{
			name:       "just under a level boundary",
			totals:     models.CumulativeTotals{PomodoroSessions: 9, TasksCompleted: 2},
			wantPoints: 490,
			wantLevel:  1,
		},
		{
			name: "mixed activity",
			totals: models.CumulativeTotals{
				PomodoroSessions: 20, // 1000
				TasksCompleted:   15, // 300
				StreakDays:       7,  // 700
			},
			wantPoints: 2000,
			wantLevel:  5,
		},
		{
			name:       "focus minutes do not award points",
			totals:     models.CumulativeTotals{FocusMinutes: 100000},
			wantPoints: 0,
			wantLevel:  1,
		},
		{
			name:       "negative totals clamp to zero",
			totals:     models.CumulativeTotals{PomodoroSessions: -5, TasksCompleted: -1},
			wantPoints: 0,
			wantLevel:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := PointsAndLevel(tt.totals)
			if got.Points != tt.wantPoints || got.Level != tt.wantLevel {
				t.Errorf("PointsAndLevel(%+v) = %+v, expected points=%d level=%d",
					tt.totals, got, tt.wantPoints, tt.wantLevel)
			}
		})
	}
}

func TestPointsAndLevelMonotonic(t *testing.T) {
	t.Parallel()

	prev := PointsAndLevel(models.CumulativeTotals{})
	for sessions := 0; sessions <= 100; sessions += 5 {
		cur := PointsAndLevel(models.CumulativeTotals{
			PomodoroSessions: sessions,
			TasksCompleted:   sessions * 2,
			StreakDays:       sessions / 10,
		})
		if cur.Points < prev.Points || cur.Level < prev.Level {
			t.Fatalf("progression regressed: %+v after %+v", cur, prev)
		}
		prev = cur
	}
}
