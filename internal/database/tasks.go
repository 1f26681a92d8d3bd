package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/boostday/boostday/internal/models"
)

// TaskRepository handles task database operations
type TaskRepository struct {
	db *DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create creates a new task
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	query := `
		INSERT INTO tasks (id, user_id, title, type, start_time, completed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		task.ID,
		task.UserID,
		task.Title,
		task.Type,
		task.StartTime,
		task.Completed,
		now,
		now,
	).Scan(&task.CreatedAt, &task.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

// GetByID retrieves a task by ID
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	task := &models.Task{}
	var completedAt sql.NullTime

	query := `
		SELECT id, user_id, title, type, start_time, completed, created_at, updated_at, completed_at
		FROM tasks
		WHERE id = $1
	`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&task.Type,
		&task.StartTime,
		&task.Completed,
		&task.CreatedAt,
		&task.UpdatedAt,
		&completedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	if completedAt.Valid {
		task.CompletedAt = &completedAt.Time
	}

	return task, nil
}

// GetByUserID retrieves all tasks for a user, optionally bounded to a time
// window and filtered by completion state.
func (r *TaskRepository) GetByUserID(ctx context.Context, userID uuid.UUID, from, to *time.Time, completed *bool) ([]*models.Task, error) {
	query := `
		SELECT id, user_id, title, type, start_time, completed, created_at, updated_at, completed_at
		FROM tasks
		WHERE user_id = $1
	`
	args := []any{userID}
	argIndex := 2

	if from != nil {
		query += fmt.Sprintf(" AND start_time >= $%d", argIndex)
		args = append(args, *from)
		argIndex++
	}

	if to != nil {
		query += fmt.Sprintf(" AND start_time < $%d", argIndex)
		args = append(args, *to)
		argIndex++
	}

	if completed != nil {
		query += fmt.Sprintf(" AND completed = $%d", argIndex)
		args = append(args, *completed)
		argIndex++
	}

	query += " ORDER BY start_time ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			_ = err
		}
	}()

	var tasks []*models.Task
	for rows.Next() {
		task := &models.Task{}
		var completedAt sql.NullTime

		err := rows.Scan(
			&task.ID,
			&task.UserID,
			&task.Title,
			&task.Type,
			&task.StartTime,
			&task.Completed,
			&task.CreatedAt,
			&task.UpdatedAt,
			&completedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}

		if completedAt.Valid {
			task.CompletedAt = &completedAt.Time
		}

		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return tasks, nil
}

// CountScheduled counts tasks whose start time falls within the window.
func (r *TaskRepository) CountScheduled(ctx context.Context, userID uuid.UUID, from, to time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM tasks
		WHERE user_id = $1 AND start_time >= $2 AND start_time < $3
	`

	var count int
	if err := r.db.QueryRowContext(ctx, query, userID, from, to).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count scheduled tasks: %w", err)
	}

	return count, nil
}

// CountScheduledTx is the in-transaction variant of CountScheduled, used by
// the stats recompute so the planned-task count matches the counters being
// scored.
func CountScheduledTx(ctx context.Context, tx *sql.Tx, userID uuid.UUID, from, to time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM tasks
		WHERE user_id = $1 AND start_time >= $2 AND start_time < $3
	`

	var count int
	if err := tx.QueryRowContext(ctx, query, userID, from, to).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count scheduled tasks: %w", err)
	}

	return count, nil
}

// Update updates an existing task
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	query := `
		UPDATE tasks
		SET title = $2, type = $3, start_time = $4, completed = $5, updated_at = $6, completed_at = $7
		WHERE id = $1
		RETURNING updated_at
	`

	var completedAt sql.NullTime
	if task.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *task.CompletedAt, Valid: true}
	}

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		task.ID,
		task.Title,
		task.Type,
		task.StartTime,
		task.Completed,
		now,
		completedAt,
	).Scan(&task.UpdatedAt)

	if err == sql.ErrNoRows {
		return fmt.Errorf("task not found")
	}
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	return nil
}

// MarkCompleted flips an incomplete task to completed, returning false when
// the task was already completed. The guard keeps a double-submit from
// emitting a second activity delta.
func (r *TaskRepository) MarkCompleted(ctx context.Context, id uuid.UUID, completedAt time.Time) (bool, error) {
	query := `
		UPDATE tasks
		SET completed = true, completed_at = $2, updated_at = $2
		WHERE id = $1 AND completed = false
	`

	result, err := r.db.ExecContext(ctx, query, id, completedAt)
	if err != nil {
		return false, fmt.Errorf("failed to mark task completed: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// Delete deletes a task by ID
func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM tasks WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("task not found")
	}

	return nil
}
