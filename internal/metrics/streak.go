package metrics

import (
	"time"

	"github.com/boostday/boostday/internal/models"
)

// Streak returns the current consecutive-day activity streak as of today.
//
// history must be ordered most-recent-date-first, one row per day. The walk
// keeps a cursor starting at today: a row 0 or 1 days behind the cursor with
// activity extends the streak and moves the cursor to that row's date; a row
// in that window without activity ends the streak, as does a gap of more than
// one day. The 1-day allowance means a streak survives until the end of the
// day after the last active day - callers that persist streaks rely on that
// grace period, so it is part of the contract.
//
// Future-dated rows should not occur; if one shows up it is skipped rather
// than letting it break the chain.
func Streak(history []*models.DailyStats, today time.Time) int {
	streak := 0
	cursor := dateOf(today)

	for _, rec := range history {
		recDate := dateOf(rec.Date)
		diff := daysBetween(recDate, cursor)

		switch {
		case diff < 0:
			continue
		case diff > 1:
			return streak
		default:
			if !rec.HasActivity() {
				return streak
			}
			streak++
			cursor = recDate
		}
	}

	return streak
}

// dateOf truncates a timestamp to its calendar day.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// daysBetween returns the whole days from a to b (positive when a is earlier).
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a) / (24 * time.Hour))
}
