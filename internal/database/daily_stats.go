package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/boostday/boostday/internal/models"
)

// DailyStatsRepository handles daily stats database operations
type DailyStatsRepository struct {
	db *DB
}

// NewDailyStatsRepository creates a new daily stats repository
func NewDailyStatsRepository(db *DB) *DailyStatsRepository {
	return &DailyStatsRepository{db: db}
}

// RecomputeFunc derives the scored fields (efficiency, points, level, streak)
// from the merged counters. It runs inside the ApplyDelta transaction so the
// derived fields are never observed out of sync with the counters.
type RecomputeFunc func(ctx context.Context, tx *sql.Tx, stats *models.DailyStats) error

// ApplyDelta atomically merges an activity delta into the user's row for the
// given date and recomputes the derived fields. The event ID makes the call
// idempotent: a replayed event is a no-op and returns the current row.
func (r *DailyStatsRepository) ApplyDelta(ctx context.Context, userID, eventID uuid.UUID, date time.Time, delta models.ActivityDelta, recompute RecomputeFunc) (*models.DailyStats, error) {
	var stats *models.DailyStats

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		claimed, eventDate, err := claimEvent(ctx, tx, userID, eventID, date)
		if err != nil {
			return err
		}

		if !claimed {
			// Replays load by the date the event was originally recorded
			// under, not whatever date the retry carries.
			existing, err := scanStatsRow(tx.QueryRowContext(ctx, selectStatsForDate, userID, eventDate))
			if err != nil {
				return fmt.Errorf("failed to load stats for replayed event: %w", err)
			}
			stats = existing
			return nil
		}

		merged, err := mergeDelta(ctx, tx, userID, date, delta)
		if err != nil {
			return err
		}

		if err := recompute(ctx, tx, merged); err != nil {
			return fmt.Errorf("failed to recompute derived stats: %w", err)
		}

		if err := writeDerived(ctx, tx, merged); err != nil {
			return err
		}

		stats = merged
		return nil
	})
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// claimEvent records the event ID and its day. For an already-seen event it
// returns false along with the day the event was originally recorded under.
func claimEvent(ctx context.Context, tx *sql.Tx, userID, eventID uuid.UUID, date time.Time) (bool, time.Time, error) {
	query := `
		INSERT INTO activity_events (user_id, event_id, date, recorded_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, event_id) DO NOTHING
	`

	result, err := tx.ExecContext(ctx, query, userID, eventID, date, time.Now())
	if err != nil {
		return false, time.Time{}, fmt.Errorf("failed to claim activity event: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, time.Time{}, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 1 {
		return true, date, nil
	}

	var original time.Time
	selectQuery := `SELECT date FROM activity_events WHERE user_id = $1 AND event_id = $2`
	if err := tx.QueryRowContext(ctx, selectQuery, userID, eventID).Scan(&original); err != nil {
		return false, time.Time{}, fmt.Errorf("failed to load replayed event: %w", err)
	}

	return false, original, nil
}

// mergeDelta adds the delta onto the day's counters, creating the row if this
// is the first activity of the day. The additive ON CONFLICT arm means two
// concurrent events both land: the second merge sees the first one's counters.
func mergeDelta(ctx context.Context, tx *sql.Tx, userID uuid.UUID, date time.Time, delta models.ActivityDelta) (*models.DailyStats, error) {
	query := `
		INSERT INTO daily_stats (id, user_id, date, focus_time, pomodoro_sessions, tasks_completed, efficiency_score, points, level, streak, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, 0, 1, 0, $7, $7)
		ON CONFLICT (user_id, date) DO UPDATE
		SET focus_time = daily_stats.focus_time + EXCLUDED.focus_time,
		    pomodoro_sessions = daily_stats.pomodoro_sessions + EXCLUDED.pomodoro_sessions,
		    tasks_completed = daily_stats.tasks_completed + EXCLUDED.tasks_completed,
		    updated_at = EXCLUDED.updated_at
		RETURNING id, user_id, date, focus_time, pomodoro_sessions, tasks_completed, efficiency_score, points, level, streak, created_at, updated_at
	`

	row := tx.QueryRowContext(ctx, query,
		uuid.New(),
		userID,
		date,
		delta.FocusMinutes,
		delta.PomodoroSessions,
		delta.TasksCompleted,
		time.Now(),
	)

	stats, err := scanStatsRow(row)
	if err != nil {
		return nil, fmt.Errorf("failed to merge activity delta: %w", err)
	}

	return stats, nil
}

func writeDerived(ctx context.Context, tx *sql.Tx, stats *models.DailyStats) error {
	query := `
		UPDATE daily_stats
		SET efficiency_score = $2, points = $3, level = $4, streak = $5, updated_at = $6
		WHERE id = $1
		RETURNING updated_at
	`

	err := tx.QueryRowContext(ctx, query,
		stats.ID,
		stats.EfficiencyScore,
		stats.Points,
		stats.Level,
		stats.Streak,
		time.Now(),
	).Scan(&stats.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to write derived stats: %w", err)
	}

	return nil
}

const selectStatsForDate = `
	SELECT id, user_id, date, focus_time, pomodoro_sessions, tasks_completed, efficiency_score, points, level, streak, created_at, updated_at
	FROM daily_stats
	WHERE user_id = $1 AND date = $2
`

// GetByUserAndDate retrieves the stats row for one day, or nil when the user
// has no recorded activity that day.
func (r *DailyStatsRepository) GetByUserAndDate(ctx context.Context, userID uuid.UUID, date time.Time) (*models.DailyStats, error) {
	stats, err := scanStatsRow(r.db.QueryRowContext(ctx, selectStatsForDate, userID, date))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get daily stats: %w", err)
	}

	return stats, nil
}

// GetHistory retrieves the user's stats rows for dates up to and including
// the given date, newest first, limited to the given number of rows.
func (r *DailyStatsRepository) GetHistory(ctx context.Context, userID uuid.UUID, upTo time.Time, limit int) ([]*models.DailyStats, error) {
	query := `
		SELECT id, user_id, date, focus_time, pomodoro_sessions, tasks_completed, efficiency_score, points, level, streak, created_at, updated_at
		FROM daily_stats
		WHERE user_id = $1 AND date <= $2
		ORDER BY date DESC
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, userID, upTo, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats history: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			_ = err
		}
	}()

	var history []*models.DailyStats
	for rows.Next() {
		stats, err := scanStatsRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}
		history = append(history, stats)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stats history: %w", err)
	}

	return history, nil
}

// GetCumulativeTotals sums the user's counters across all recorded days and
// reads the streak from the most recent row.
func (r *DailyStatsRepository) GetCumulativeTotals(ctx context.Context, userID uuid.UUID) (models.CumulativeTotals, error) {
	query := `
		SELECT COALESCE(SUM(pomodoro_sessions), 0),
		       COALESCE(SUM(tasks_completed), 0),
		       COALESCE(SUM(focus_time), 0),
		       COALESCE((SELECT streak FROM daily_stats WHERE user_id = $1 ORDER BY date DESC LIMIT 1), 0)
		FROM daily_stats
		WHERE user_id = $1
	`

	var totals models.CumulativeTotals
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&totals.PomodoroSessions,
		&totals.TasksCompleted,
		&totals.FocusMinutes,
		&totals.StreakDays,
	)
	if err != nil {
		return models.CumulativeTotals{}, fmt.Errorf("failed to get cumulative totals: %w", err)
	}

	return totals, nil
}

// GetAverageEfficiency averages the efficiency score across days with any
// recorded activity. Days with no counters would drag the average toward
// zero without saying anything about how the user worked.
func (r *DailyStatsRepository) GetAverageEfficiency(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `
		SELECT COALESCE(ROUND(AVG(efficiency_score)), 0)
		FROM daily_stats
		WHERE user_id = $1
		  AND (focus_time > 0 OR pomodoro_sessions > 0 OR tasks_completed > 0)
	`

	var avg int
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&avg); err != nil {
		return 0, fmt.Errorf("failed to get average efficiency: %w", err)
	}

	return avg, nil
}

// GetHistoryTx is the in-transaction variant of GetHistory, used by the
// recompute step so the streak walk sees the counters it is scoring.
func GetHistoryTx(ctx context.Context, tx *sql.Tx, userID uuid.UUID, upTo time.Time, limit int) ([]*models.DailyStats, error) {
	query := `
		SELECT id, user_id, date, focus_time, pomodoro_sessions, tasks_completed, efficiency_score, points, level, streak, created_at, updated_at
		FROM daily_stats
		WHERE user_id = $1 AND date <= $2
		ORDER BY date DESC
		LIMIT $3
	`

	rows, err := tx.QueryContext(ctx, query, userID, upTo, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats history: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			_ = err
		}
	}()

	var history []*models.DailyStats
	for rows.Next() {
		stats, err := scanStatsRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}
		history = append(history, stats)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stats history: %w", err)
	}

	return history, nil
}

// GetCumulativeTotalsTx is the in-transaction variant of GetCumulativeTotals.
func GetCumulativeTotalsTx(ctx context.Context, tx *sql.Tx, userID uuid.UUID) (models.CumulativeTotals, error) {
	query := `
		SELECT COALESCE(SUM(pomodoro_sessions), 0),
		       COALESCE(SUM(tasks_completed), 0),
		       COALESCE(SUM(focus_time), 0),
		       COALESCE((SELECT streak FROM daily_stats WHERE user_id = $1 ORDER BY date DESC LIMIT 1), 0)
		FROM daily_stats
		WHERE user_id = $1
	`

	var totals models.CumulativeTotals
	err := tx.QueryRowContext(ctx, query, userID).Scan(
		&totals.PomodoroSessions,
		&totals.TasksCompleted,
		&totals.FocusMinutes,
		&totals.StreakDays,
	)
	if err != nil {
		return models.CumulativeTotals{}, fmt.Errorf("failed to get cumulative totals: %w", err)
	}

	return totals, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanStatsRow(row scanner) (*models.DailyStats, error) {
	stats := &models.DailyStats{}
	err := row.Scan(
		&stats.ID,
		&stats.UserID,
		&stats.Date,
		&stats.FocusTime,
		&stats.PomodoroSessions,
		&stats.TasksCompleted,
		&stats.EfficiencyScore,
		&stats.Points,
		&stats.Level,
		&stats.Streak,
		&stats.CreatedAt,
		&stats.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
