package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/boostday/boostday/internal/database"
	"github.com/boostday/boostday/internal/queue"
)

// SessionCleaner purges pomodoro session rows from before the current day.
// Their contribution to the metrics already lives in daily_stats, so the raw
// rows only need to survive the day they belong to.
type SessionCleaner struct {
	jobQueue    queue.JobQueue
	sessionRepo database.SessionRepositoryInterface
	logger      *zap.Logger
}

// NewSessionCleaner creates a new session cleaner
func NewSessionCleaner(jobQueue queue.JobQueue, sessionRepo database.SessionRepositoryInterface, logger *zap.Logger) *SessionCleaner {
	return &SessionCleaner{
		jobQueue:    jobQueue,
		sessionRepo: sessionRepo,
		logger:      logger,
	}
}

// ScheduleCleanupJob enqueues the next cleanup job, delayed until shortly
// after the coming midnight.
func (c *SessionCleaner) ScheduleCleanupJob(ctx context.Context) error {
	now := time.Now()
	nextRun := time.Date(now.Year(), now.Month(), now.Day(), 0, 5, 0, 0, now.Location()).Add(24 * time.Hour)

	job := queue.NewJob(queue.JobTypeSessionCleanup, uuid.Nil, nil)
	job.NotBefore = &nextRun

	// Expire undelivered cleanup jobs after a day so they don't pile up
	notAfter := nextRun.Add(24 * time.Hour)
	job.NotAfter = &notAfter

	if err := c.jobQueue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("failed to enqueue cleanup job: %w", err)
	}

	c.logger.Info("scheduled_session_cleanup",
		zap.Time("next_run", nextRun),
	)

	return nil
}

// ProcessSessionCleanupJob purges sessions started before today and schedules
// the next run.
func (c *SessionCleaner) ProcessSessionCleanupJob(ctx context.Context, job *queue.Job) error {
	now := time.Now()
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	purged, err := c.sessionRepo.DeleteStartedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to purge old sessions: %w", err)
	}

	c.logger.Info("purged_old_sessions",
		zap.Int64("purged", purged),
		zap.Time("cutoff", cutoff),
	)

	if err := c.ScheduleCleanupJob(ctx); err != nil {
		c.logger.Warn("failed_to_schedule_next_cleanup", zap.Error(err))
	}

	return nil
}
