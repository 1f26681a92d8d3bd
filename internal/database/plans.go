package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/boostday/boostday/internal/models"
)

// PlanRepository handles AI plan database operations
type PlanRepository struct {
	db *DB
}

// NewPlanRepository creates a new plan repository
func NewPlanRepository(db *DB) *PlanRepository {
	return &PlanRepository{db: db}
}

// Create creates a new plan in pending status
func (r *PlanRepository) Create(ctx context.Context, plan *models.Plan) error {
	query := `
		INSERT INTO plans (id, user_id, goal, plan_type, timeline, details, deadline, status, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULL, $9, $9)
		RETURNING created_at, updated_at
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		plan.ID,
		plan.UserID,
		plan.Goal,
		plan.PlanType,
		plan.Timeline,
		plan.Details,
		plan.Deadline,
		plan.Status,
		now,
	).Scan(&plan.CreatedAt, &plan.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create plan: %w", err)
	}

	return nil
}

// GetByID retrieves a plan by ID
func (r *PlanRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	plan := &models.Plan{}
	var contentJSON []byte

	query := `
		SELECT id, user_id, goal, plan_type, timeline, details, deadline, status, content, created_at, updated_at
		FROM plans
		WHERE id = $1
	`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&plan.ID,
		&plan.UserID,
		&plan.Goal,
		&plan.PlanType,
		&plan.Timeline,
		&plan.Details,
		&plan.Deadline,
		&plan.Status,
		&contentJSON,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("plan not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	if len(contentJSON) > 0 {
		content := &models.PlanContent{}
		if err := json.Unmarshal(contentJSON, content); err != nil {
			return nil, fmt.Errorf("failed to unmarshal plan content: %w", err)
		}
		plan.Content = content
	}

	return plan, nil
}

// GetByUserID retrieves all plans for a user, newest first
func (r *PlanRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Plan, error) {
	query := `
		SELECT id, user_id, goal, plan_type, timeline, details, deadline, status, content, created_at, updated_at
		FROM plans
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query plans: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			_ = err
		}
	}()

	var plans []*models.Plan
	for rows.Next() {
		plan := &models.Plan{}
		var contentJSON []byte

		err := rows.Scan(
			&plan.ID,
			&plan.UserID,
			&plan.Goal,
			&plan.PlanType,
			&plan.Timeline,
			&plan.Details,
			&plan.Deadline,
			&plan.Status,
			&contentJSON,
			&plan.CreatedAt,
			&plan.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}

		if len(contentJSON) > 0 {
			content := &models.PlanContent{}
			if err := json.Unmarshal(contentJSON, content); err != nil {
				return nil, fmt.Errorf("failed to unmarshal plan content: %w", err)
			}
			plan.Content = content
		}

		plans = append(plans, plan)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating plans: %w", err)
	}

	return plans, nil
}

// SetContent marks a plan ready and stores the generated content
func (r *PlanRepository) SetContent(ctx context.Context, id uuid.UUID, content *models.PlanContent) error {
	contentJSON, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to marshal plan content: %w", err)
	}

	query := `
		UPDATE plans
		SET status = $2, content = $3, updated_at = $4
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, models.PlanStatusReady, contentJSON, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set plan content: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("plan not found")
	}

	return nil
}

// SetStatus updates a plan's status without touching its content
func (r *PlanRepository) SetStatus(ctx context.Context, id uuid.UUID, status models.PlanStatus) error {
	query := `
		UPDATE plans
		SET status = $2, updated_at = $3
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, status, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set plan status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("plan not found")
	}

	return nil
}

// Delete deletes a plan by ID
func (r *PlanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM plans WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete plan: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("plan not found")
	}

	return nil
}
