package stats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/boostday/boostday/internal/database"
	"github.com/boostday/boostday/internal/metrics"
	"github.com/boostday/boostday/internal/models"
)

const (
	// maxRetries bounds the retry loop around version/serialization conflicts.
	maxRetries = 3
	// retryBaseDelay is the first backoff step; doubled per attempt.
	retryBaseDelay = 25 * time.Millisecond
	// streakWindow is how many history rows the streak walk loads. A streak
	// longer than a year walks day by day, so a year-plus of rows suffices.
	streakWindow = 400
)

// Service computes and persists productivity metrics. All derived values flow
// from the daily counters; callers never write efficiency, points, level, or
// streak directly.
type Service struct {
	statsRepo database.DailyStatsRepositoryInterface
	catalog   []metrics.Achievement
	logger    *zap.Logger
}

// NewService creates a new stats service
func NewService(statsRepo database.DailyStatsRepositoryInterface, catalog []metrics.Achievement, logger *zap.Logger) *Service {
	return &Service{
		statsRepo: statsRepo,
		catalog:   catalog,
		logger:    logger,
	}
}

// RecordActivity folds one activity event into the user's stats for the
// event's date and returns the updated row. Replaying the same event ID is a
// no-op. Serialization conflicts are retried with backoff before giving up
// with ErrStorageUnavailable.
func (s *Service) RecordActivity(ctx context.Context, userID, eventID uuid.UUID, date time.Time, delta models.ActivityDelta) (*models.DailyStats, error) {
	if err := validateEvent(userID, eventID, date, delta); err != nil {
		return nil, err
	}

	day := date.Truncate(24 * time.Hour)

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay << (attempt - 1)
			s.logger.Warn("retrying_activity_record",
				zap.String("user_id", userID.String()),
				zap.String("event_id", eventID.String()),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		stats, err := s.statsRepo.ApplyDelta(ctx, userID, eventID, day, delta, s.recompute)
		if err == nil {
			return stats, nil
		}
		if !isRetryable(err) {
			return nil, fmt.Errorf("failed to record activity: %w", err)
		}
		lastErr = err
	}

	s.logger.Error("activity_record_exhausted_retries",
		zap.String("user_id", userID.String()),
		zap.String("event_id", eventID.String()),
		zap.Error(lastErr),
	)
	return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, lastErr)
}

// recompute rescores the merged row inside the write transaction so the
// derived fields always match the counters.
func (s *Service) recompute(ctx context.Context, tx *sql.Tx, stats *models.DailyStats) error {
	dayStart := stats.Date
	dayEnd := dayStart.Add(24 * time.Hour)

	planned, err := database.CountScheduledTx(ctx, tx, stats.UserID, dayStart, dayEnd)
	if err != nil {
		return err
	}

	stats.EfficiencyScore = metrics.Efficiency(metrics.DayCounters{
		TasksPlanned:     planned,
		TasksCompleted:   stats.TasksCompleted,
		PomodoroSessions: stats.PomodoroSessions,
		FocusMinutes:     stats.FocusTime,
	})

	history, err := database.GetHistoryTx(ctx, tx, stats.UserID, stats.Date, streakWindow)
	if err != nil {
		return err
	}
	stats.Streak = metrics.Streak(history, stats.Date)

	totals, err := database.GetCumulativeTotalsTx(ctx, tx, stats.UserID)
	if err != nil {
		return err
	}
	totals.StreakDays = stats.Streak

	progression := metrics.PointsAndLevel(totals)
	stats.Points = progression.Points
	stats.Level = progression.Level

	return nil
}

// Today returns the user's stats row for the given date. A day with no
// recorded activity comes back as a zeroed row rather than an error.
func (s *Service) Today(ctx context.Context, userID uuid.UUID, date time.Time) (*models.DailyStats, error) {
	day := date.Truncate(24 * time.Hour)

	stats, err := s.statsRepo.GetByUserAndDate(ctx, userID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to load today's stats: %w", err)
	}
	if stats == nil {
		return &models.DailyStats{
			UserID: userID,
			Date:   day,
			Level:  1,
		}, nil
	}

	return stats, nil
}

// History returns up to limit daily rows ending at the given date, newest
// first.
func (s *Service) History(ctx context.Context, userID uuid.UUID, upTo time.Time, limit int) ([]*models.DailyStats, error) {
	if limit <= 0 || limit > streakWindow {
		limit = streakWindow
	}

	history, err := s.statsRepo.GetHistory(ctx, userID, upTo.Truncate(24*time.Hour), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load stats history: %w", err)
	}

	return history, nil
}

// Summary is the all-time rollup returned by the summary endpoint.
type Summary struct {
	Totals            models.CumulativeTotals     `json:"totals"`
	Points            int                         `json:"points"`
	Level             int                         `json:"level"`
	AverageEfficiency int                         `json:"average_efficiency"`
	Achievements      []metrics.AchievementStatus `json:"achievements"`
}

// currentStreak walks recent history as of now. The per-row streak column is
// only a write-time snapshot; a read after idle days has to see the streak
// decayed, so it is always recomputed here.
func (s *Service) currentStreak(ctx context.Context, userID uuid.UUID, now time.Time) (int, error) {
	day := now.UTC().Truncate(24 * time.Hour)
	history, err := s.statsRepo.GetHistory(ctx, userID, day, streakWindow)
	if err != nil {
		return 0, fmt.Errorf("failed to load stats history: %w", err)
	}
	return metrics.Streak(history, day), nil
}

// Summarize returns cumulative totals, progression, and achievement states.
func (s *Service) Summarize(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	totals, err := s.statsRepo.GetCumulativeTotals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cumulative totals: %w", err)
	}

	streak, err := s.currentStreak(ctx, userID, time.Now())
	if err != nil {
		return nil, err
	}
	totals.StreakDays = streak

	avgEfficiency, err := s.statsRepo.GetAverageEfficiency(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load average efficiency: %w", err)
	}

	progression := metrics.PointsAndLevel(totals)

	return &Summary{
		Totals:            totals,
		Points:            progression.Points,
		Level:             progression.Level,
		AverageEfficiency: avgEfficiency,
		Achievements:      metrics.EvaluateAchievements(totals, s.catalog),
	}, nil
}

// DayFocus is one day of the weekly focus pattern. Days without a stored row
// appear with zeroed counters so charts always get seven entries.
type DayFocus struct {
	Date             time.Time `json:"date"`
	FocusMinutes     int       `json:"focus_minutes"`
	PomodoroSessions int       `json:"pomodoro_sessions"`
	TasksCompleted   int       `json:"tasks_completed"`
	EfficiencyScore  int       `json:"efficiency_score"`
}

// MonthProgress aggregates one calendar month of recorded days.
type MonthProgress struct {
	Month            string `json:"month"` // YYYY-MM
	FocusMinutes     int    `json:"focus_minutes"`
	PomodoroSessions int    `json:"pomodoro_sessions"`
	TasksCompleted   int    `json:"tasks_completed"`
	ActiveDays       int    `json:"active_days"`
}

// PatternsReport is the derived view behind the analytics charts.
type PatternsReport struct {
	Week   []DayFocus      `json:"week"`
	Months []MonthProgress `json:"months"`
}

// patternMonths bounds how far back the patterns view reaches.
const patternMonths = 6

// Patterns derives the last seven days of focus activity and a per-month
// rollup from stored history, so every view reads the same numbers instead
// of re-aggregating client-side.
func (s *Service) Patterns(ctx context.Context, userID uuid.UUID, now time.Time) (*PatternsReport, error) {
	history, err := s.statsRepo.GetHistory(ctx, userID, now, patternMonths*31)
	if err != nil {
		return nil, fmt.Errorf("failed to load stats history: %w", err)
	}

	byDay := make(map[string]*models.DailyStats, len(history))
	for _, row := range history {
		byDay[row.Date.UTC().Format("2006-01-02")] = row
	}

	week := make([]DayFocus, 0, 7)
	for i := 6; i >= 0; i-- {
		day := now.UTC().AddDate(0, 0, -i)
		entry := DayFocus{Date: day.Truncate(24 * time.Hour)}
		if row, ok := byDay[day.Format("2006-01-02")]; ok {
			entry.FocusMinutes = row.FocusTime
			entry.PomodoroSessions = row.PomodoroSessions
			entry.TasksCompleted = row.TasksCompleted
			entry.EfficiencyScore = row.EfficiencyScore
		}
		week = append(week, entry)
	}

	// History is newest first, so months come out in reverse chronological
	// order without sorting.
	var months []MonthProgress
	byMonth := make(map[string]int, patternMonths)
	for _, row := range history {
		key := row.Date.UTC().Format("2006-01")
		idx, ok := byMonth[key]
		if !ok {
			if len(months) == patternMonths {
				break
			}
			months = append(months, MonthProgress{Month: key})
			idx = len(months) - 1
			byMonth[key] = idx
		}
		months[idx].FocusMinutes += row.FocusTime
		months[idx].PomodoroSessions += row.PomodoroSessions
		months[idx].TasksCompleted += row.TasksCompleted
		if row.HasActivity() {
			months[idx].ActiveDays++
		}
	}
	if months == nil {
		months = []MonthProgress{}
	}

	return &PatternsReport{Week: week, Months: months}, nil
}

// Achievements returns the evaluated achievement list on its own.
func (s *Service) Achievements(ctx context.Context, userID uuid.UUID) ([]metrics.AchievementStatus, error) {
	totals, err := s.statsRepo.GetCumulativeTotals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cumulative totals: %w", err)
	}

	streak, err := s.currentStreak(ctx, userID, time.Now())
	if err != nil {
		return nil, err
	}
	totals.StreakDays = streak

	return metrics.EvaluateAchievements(totals, s.catalog), nil
}

func validateEvent(userID, eventID uuid.UUID, date time.Time, delta models.ActivityDelta) error {
	if userID == uuid.Nil {
		return fmt.Errorf("%w: user ID is required", ErrInvalidInput)
	}
	if eventID == uuid.Nil {
		return fmt.Errorf("%w: event ID is required", ErrInvalidInput)
	}
	if date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidInput)
	}
	if delta.FocusMinutes < 0 || delta.PomodoroSessions < 0 || delta.TasksCompleted < 0 {
		return fmt.Errorf("%w: delta counters must be non-negative", ErrInvalidInput)
	}
	return nil
}

// isRetryable reports whether the error is a transient conflict worth
// retrying. Postgres signals these as serialization_failure (40001) and
// deadlock_detected (40P01).
func isRetryable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}
