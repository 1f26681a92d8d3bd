package database

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/boostday/boostday/internal/models"
)

// DailyStatsRepositoryInterface defines the interface for daily stats
// repository operations. This interface enables better testability by
// allowing mock implementations
type DailyStatsRepositoryInterface interface {
	ApplyDelta(ctx context.Context, userID, eventID uuid.UUID, date time.Time, delta models.ActivityDelta, recompute RecomputeFunc) (*models.DailyStats, error)
	GetByUserAndDate(ctx context.Context, userID uuid.UUID, date time.Time) (*models.DailyStats, error)
	GetHistory(ctx context.Context, userID uuid.UUID, upTo time.Time, limit int) ([]*models.DailyStats, error)
	GetCumulativeTotals(ctx context.Context, userID uuid.UUID) (models.CumulativeTotals, error)
	GetAverageEfficiency(ctx context.Context, userID uuid.UUID) (int, error)
}

// TaskRepositoryInterface defines the interface for task repository operations
type TaskRepositoryInterface interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	GetByUserID(ctx context.Context, userID uuid.UUID, from, to *time.Time, completed *bool) ([]*models.Task, error)
	CountScheduled(ctx context.Context, userID uuid.UUID, from, to time.Time) (int, error)
	Update(ctx context.Context, task *models.Task) error
	MarkCompleted(ctx context.Context, id uuid.UUID, completedAt time.Time) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// SessionRepositoryInterface defines the interface for session repository operations
type SessionRepositoryInterface interface {
	Create(ctx context.Context, session *models.PomodoroSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.PomodoroSession, error)
	GetByUserID(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*models.PomodoroSession, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, completedAt time.Time) (bool, error)
	DeleteStartedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// PlanRepositoryInterface defines the interface for plan repository operations
type PlanRepositoryInterface interface {
	Create(ctx context.Context, plan *models.Plan) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Plan, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Plan, error)
	SetContent(ctx context.Context, id uuid.UUID, content *models.PlanContent) error
	SetStatus(ctx context.Context, id uuid.UUID, status models.PlanStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// UserRepositoryInterface defines the interface for user repository operations
type UserRepositoryInterface interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByProviderID(ctx context.Context, providerID string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}

// Ensure concrete types implement the interfaces
var (
	_ DailyStatsRepositoryInterface = (*DailyStatsRepository)(nil)
	_ TaskRepositoryInterface       = (*TaskRepository)(nil)
	_ SessionRepositoryInterface    = (*SessionRepository)(nil)
	_ PlanRepositoryInterface       = (*PlanRepository)(nil)
	_ UserRepositoryInterface       = (*UserRepository)(nil)
)
