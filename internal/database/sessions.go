package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/boostday/boostday/internal/models"
)

// SessionRepository handles pomodoro session database operations
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create creates a new pomodoro session
func (r *SessionRepository) Create(ctx context.Context, session *models.PomodoroSession) error {
	query := `
		INSERT INTO pomodoro_sessions (id, user_id, task_name, mode, duration, completed, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		session.TaskName,
		session.Mode,
		session.Duration,
		session.Completed,
		session.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetByID retrieves a session by ID
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PomodoroSession, error) {
	session := &models.PomodoroSession{}
	var completedAt sql.NullTime

	query := `
		SELECT id, user_id, task_name, mode, duration, completed, started_at, completed_at
		FROM pomodoro_sessions
		WHERE id = $1
	`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&session.ID,
		&session.UserID,
		&session.TaskName,
		&session.Mode,
		&session.Duration,
		&session.Completed,
		&session.StartedAt,
		&completedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if completedAt.Valid {
		session.CompletedAt = &completedAt.Time
	}

	return session, nil
}

// GetByUserID retrieves a user's sessions started within the window, newest
// first.
func (r *SessionRepository) GetByUserID(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*models.PomodoroSession, error) {
	query := `
		SELECT id, user_id, task_name, mode, duration, completed, started_at, completed_at
		FROM pomodoro_sessions
		WHERE user_id = $1 AND started_at >= $2 AND started_at < $3
		ORDER BY started_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			_ = err
		}
	}()

	var sessions []*models.PomodoroSession
	for rows.Next() {
		session := &models.PomodoroSession{}
		var completedAt sql.NullTime

		err := rows.Scan(
			&session.ID,
			&session.UserID,
			&session.TaskName,
			&session.Mode,
			&session.Duration,
			&session.Completed,
			&session.StartedAt,
			&completedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}

		if completedAt.Valid {
			session.CompletedAt = &completedAt.Time
		}

		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}

// MarkCompleted flips an in-progress session to completed, returning false
// when it was already completed.
func (r *SessionRepository) MarkCompleted(ctx context.Context, id uuid.UUID, completedAt time.Time) (bool, error) {
	query := `
		UPDATE pomodoro_sessions
		SET completed = true, completed_at = $2
		WHERE id = $1 AND completed = false
	`

	result, err := r.db.ExecContext(ctx, query, id, completedAt)
	if err != nil {
		return false, fmt.Errorf("failed to mark session completed: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// DeleteStartedBefore removes sessions started before the cutoff and returns
// how many were removed. Stats derived from them have already been folded
// into daily_stats, so the rows are safe to drop.
func (r *SessionRepository) DeleteStartedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM pomodoro_sessions WHERE started_at < $1`

	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old sessions: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
