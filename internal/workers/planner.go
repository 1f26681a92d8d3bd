package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/boostday/boostday/internal/database"
	"github.com/boostday/boostday/internal/models"
	"github.com/boostday/boostday/internal/queue"
	"github.com/boostday/boostday/internal/services/ai"
)

// PlanGenerator processes plan generation jobs
type PlanGenerator struct {
	aiProvider ai.AIProvider
	planRepo   database.PlanRepositoryInterface
	cleaner    *SessionCleaner
	jobQueue   queue.JobQueue // For re-enqueueing jobs with delays
}

// NewPlanGenerator creates a new plan generator
func NewPlanGenerator(
	aiProvider ai.AIProvider,
	planRepo database.PlanRepositoryInterface,
	cleaner *SessionCleaner,
	jobQueue queue.JobQueue,
) *PlanGenerator {
	return &PlanGenerator{
		aiProvider: aiProvider,
		planRepo:   planRepo,
		cleaner:    cleaner,
		jobQueue:   jobQueue,
	}
}

// ProcessPlanGenerationJob processes a plan generation job
func (g *PlanGenerator) ProcessPlanGenerationJob(ctx context.Context, job *queue.Job) error {
	if job.PlanID == nil {
		return fmt.Errorf("plan_id is required for plan generation job")
	}

	plan, err := g.planRepo.GetByID(ctx, *job.PlanID)
	if err != nil {
		return fmt.Errorf("failed to get plan: %w", err)
	}

	// Verify plan belongs to user
	if plan.UserID != job.UserID {
		return fmt.Errorf("plan does not belong to user")
	}

	// Already generated, nothing to do (duplicate delivery)
	if plan.Status == models.PlanStatusReady {
		log.Printf("Plan %s already generated, skipping", plan.ID)
		return nil
	}

	genCtx := context.WithValue(ctx, ai.UserIDContextKey(), job.UserID)
	genCtx = context.WithValue(genCtx, ai.PlanIDContextKey(), plan.ID)

	content, err := g.aiProvider.GeneratePlan(genCtx, ai.PlanRequest{
		Goal:     plan.Goal,
		PlanType: plan.PlanType,
		Timeline: plan.Timeline,
		Details:  plan.Details,
		Deadline: plan.Deadline,
	})
	if err != nil {
		return fmt.Errorf("failed to generate plan: %w", err)
	}

	if err := g.planRepo.SetContent(ctx, plan.ID, content); err != nil {
		return fmt.Errorf("failed to store plan content: %w", err)
	}

	log.Printf("Generated plan %s: %q, %d phases", plan.ID, content.Title, len(content.Phases))
	return nil
}

// ProcessJob processes a job based on its type
func (g *PlanGenerator) ProcessJob(ctx context.Context, msg *queue.Message) error {
	job := msg.Job

	// Check if job should be processed now (respect NotBefore)
	if !job.ShouldProcess() {
		log.Printf("Job %s not ready yet (NotBefore: %v), skipping", job.ID, job.NotBefore)
		if ackErr := msg.Ack(); ackErr != nil {
			log.Printf("Failed to ack job for later processing: %v", ackErr)
		}
		return nil
	}

	switch job.Type {
	case queue.JobTypePlanGeneration:
		if err := g.ProcessPlanGenerationJob(ctx, job); err != nil {
			return g.handleJobError(ctx, msg, job, err, "plan generation")
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil

	case queue.JobTypeSessionCleanup:
		if err := g.cleaner.ProcessSessionCleanupJob(ctx, job); err != nil {
			// Cleanup failures are less critical, just log
			if nackErr := msg.Nack(false); nackErr != nil { // Don't requeue cleanup jobs
				log.Printf("Failed to nack cleanup job: %v", nackErr)
			}
			return fmt.Errorf("session cleanup failed: %w", err)
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack cleanup job: %w", ackErr)
		}
		return nil

	default:
		if nackErr := msg.Nack(false); nackErr != nil { // Unknown job type, send to DLQ
			log.Printf("Failed to nack unknown job type: %v", nackErr)
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// handleJobError handles errors from job processing with intelligent retry logic
func (g *PlanGenerator) handleJobError(ctx context.Context, msg *queue.Message, job *queue.Job, err error, jobType string) error {
	// Check if it's a quota error (should not retry immediately)
	if ai.IsQuotaError(err) {
		log.Printf("Quota exceeded for %s job %s: %v", jobType, job.ID, err)

		// For quota errors, re-enqueue with long delay (1 hour minimum)
		retryDelay := ai.GetRetryDelay(err, job.RetryCount)
		notBefore := time.Now().Add(retryDelay)

		log.Printf("Re-enqueueing %s job %s with NotBefore=%v (quota exhausted, retry in %v)",
			jobType, job.ID, notBefore, retryDelay)

		// Create new job with delayed retry
		delayedJob := &queue.Job{
			ID:         job.ID,
			Type:       job.Type,
			UserID:     job.UserID,
			PlanID:     job.PlanID,
			NotBefore:  &notBefore,
			NotAfter:   job.NotAfter,
			Metadata:   job.Metadata,
			CreatedAt:  job.CreatedAt,
			RetryCount: job.RetryCount + 1,
			MaxRetries: job.MaxRetries,
		}

		// Ack the current message
		if ackErr := msg.Ack(); ackErr != nil {
			log.Printf("Failed to ack job before re-enqueue: %v", ackErr)
		}

		// Re-enqueue with delay using NotBefore (RabbitMQ delayed exchange will handle this)
		if g.jobQueue != nil {
			if enqueueErr := g.jobQueue.Enqueue(ctx, delayedJob); enqueueErr != nil {
				log.Printf("Failed to re-enqueue job %s with delay: %v", job.ID, enqueueErr)
				// If re-enqueue fails, send to DLQ
				return fmt.Errorf("quota exhausted, failed to re-enqueue: %w", enqueueErr)
			}
			log.Printf("Successfully re-enqueued %s job %s for retry at %v", jobType, job.ID, notBefore)
			return nil // Successfully handled
		}

		// If no queue access, nack without requeue to prevent spam
		log.Printf("Warning: No queue access, cannot re-enqueue job with delay. Sending to DLQ.")
		if nackErr := msg.Nack(false); nackErr != nil {
			log.Printf("Failed to nack quota error job: %v", nackErr)
		}

		return fmt.Errorf("quota exhausted (job %s): %w", job.ID, err)
	}

	// Check if it's a rate limit error (should retry with backoff)
	if ai.IsRateLimitError(err) {
		log.Printf("Rate limited for %s job %s: %v", jobType, job.ID, err)

		retryDelay := ai.GetRetryDelay(err, job.RetryCount)

		// For rate limits, re-enqueue with delay using NotBefore
		if job.CanRetry() && g.jobQueue != nil {
			notBefore := time.Now().Add(retryDelay)
			delayedJob := &queue.Job{
				ID:         job.ID,
				Type:       job.Type,
				UserID:     job.UserID,
				PlanID:     job.PlanID,
				NotBefore:  &notBefore,
				NotAfter:   job.NotAfter,
				Metadata:   job.Metadata,
				CreatedAt:  job.CreatedAt,
				RetryCount: job.RetryCount + 1,
				MaxRetries: job.MaxRetries,
			}

			// Ack the current message
			if ackErr := msg.Ack(); ackErr != nil {
				log.Printf("Failed to ack rate limited job: %v", ackErr)
			}

			// Re-enqueue with delay
			if enqueueErr := g.jobQueue.Enqueue(ctx, delayedJob); enqueueErr != nil {
				log.Printf("Failed to re-enqueue rate limited job %s: %v", job.ID, enqueueErr)
				// Fall back to nack with requeue
				if nackErr := msg.Nack(true); nackErr != nil {
					log.Printf("Failed to nack rate limited job: %v", nackErr)
				}
				return fmt.Errorf("rate limited, failed to re-enqueue: %w", enqueueErr)
			}

			log.Printf("Rate limited: re-enqueued %s job %s for retry at %v (delay: %v)",
				jobType, job.ID, notBefore, retryDelay)
			return nil // Successfully handled
		}

		// Fallback: nack with requeue (immediate retry)
		if job.CanRetry() {
			job.IncrementRetry()
			log.Printf("Rate limit: will retry job %s immediately (attempt %d/%d)",
				job.ID, job.RetryCount, job.MaxRetries)
			if nackErr := msg.Nack(true); nackErr != nil {
				log.Printf("Failed to nack rate limited job: %v", nackErr)
			}
			// Return error to signal worker to wait before processing next job
			return fmt.Errorf("rate limited (will retry): %w", err)
		}
	}

	// For other errors, use standard retry logic
	if job.CanRetry() {
		job.IncrementRetry()
		log.Printf("%s job %s failed (attempt %d/%d): %v, will retry", jobType, job.ID, job.RetryCount, job.MaxRetries, err)
		if nackErr := msg.Nack(true); nackErr != nil {
			log.Printf("Failed to nack job: %v", nackErr)
		}
		return fmt.Errorf("job failed (will retry): %w", err)
	}

	// Max retries exceeded: mark the plan failed so the user isn't left
	// polling a pending plan forever, then send the message to the DLQ
	if job.PlanID != nil {
		if statusErr := g.planRepo.SetStatus(ctx, *job.PlanID, models.PlanStatusFailed); statusErr != nil {
			log.Printf("Failed to mark plan %s failed: %v", job.PlanID, statusErr)
		}
	}

	log.Printf("%s job %s failed after %d retries: %v, sending to DLQ", jobType, job.ID, job.MaxRetries, err)
	if nackErr := msg.Nack(false); nackErr != nil {
		log.Printf("Failed to nack job to DLQ: %v", nackErr)
	}
	return fmt.Errorf("job failed (max retries): %w", err)
}
