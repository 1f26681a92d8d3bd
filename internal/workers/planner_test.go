package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/boostday/boostday/internal/database"
	"github.com/boostday/boostday/internal/models"
	"github.com/boostday/boostday/internal/queue"
	"github.com/boostday/boostday/internal/services/ai"
)

// mockAIProvider is a mock implementation of AIProvider
type mockAIProvider struct {
	generatePlanFunc func(ctx context.Context, req ai.PlanRequest) (*models.PlanContent, error)
}

func (m *mockAIProvider) GeneratePlan(ctx context.Context, req ai.PlanRequest) (*models.PlanContent, error) {
	if m.generatePlanFunc != nil {
		return m.generatePlanFunc(ctx, req)
	}
	return &models.PlanContent{
		Title:    "Generated Plan",
		Duration: "1 week",
		Phases: []models.PlanPhase{
			{Title: "Phase 1", Duration: "week 1", Tasks: []models.PlanTask{{Task: "do it", Hours: 2, Priority: "high"}}},
		},
	}, nil
}

func (m *mockAIProvider) Chat(ctx context.Context, messages []ai.ChatMessage, coachCtx *ai.CoachContext) (*ai.ChatResponse, error) {
	return nil, errors.New("not implemented")
}

func (m *mockAIProvider) SummarizeContext(ctx context.Context, history []ai.ChatMessage) (string, error) {
	return "", errors.New("not implemented")
}

// Ensure mock implements AIProvider interface
var _ ai.AIProvider = (*mockAIProvider)(nil)

// mockPlanRepo is a mock implementation of PlanRepositoryInterface
type mockPlanRepo struct {
	getByIDFunc    func(ctx context.Context, id uuid.UUID) (*models.Plan, error)
	setContentFunc func(ctx context.Context, id uuid.UUID, content *models.PlanContent) error
	setStatusFunc  func(ctx context.Context, id uuid.UUID, status models.PlanStatus) error
}

func (m *mockPlanRepo) Create(ctx context.Context, plan *models.Plan) error { return nil }

func (m *mockPlanRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &models.Plan{ID: id, UserID: uuid.New(), Status: models.PlanStatusPending}, nil
}

func (m *mockPlanRepo) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Plan, error) {
	return nil, nil
}

func (m *mockPlanRepo) SetContent(ctx context.Context, id uuid.UUID, content *models.PlanContent) error {
	if m.setContentFunc != nil {
		return m.setContentFunc(ctx, id, content)
	}
	return nil
}

func (m *mockPlanRepo) SetStatus(ctx context.Context, id uuid.UUID, status models.PlanStatus) error {
	if m.setStatusFunc != nil {
		return m.setStatusFunc(ctx, id, status)
	}
	return nil
}

func (m *mockPlanRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

// Ensure mock implements interface
var _ database.PlanRepositoryInterface = (*mockPlanRepo)(nil)

// mockSessionRepo is a mock implementation of SessionRepositoryInterface
type mockSessionRepo struct {
	deleteStartedBeforeFunc func(ctx context.Context, cutoff time.Time) (int64, error)
}

func (m *mockSessionRepo) Create(ctx context.Context, session *models.PomodoroSession) error {
	return nil
}

func (m *mockSessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.PomodoroSession, error) {
	return nil, errors.New("not implemented")
}

func (m *mockSessionRepo) GetByUserID(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*models.PomodoroSession, error) {
	return nil, nil
}

func (m *mockSessionRepo) MarkCompleted(ctx context.Context, id uuid.UUID, completedAt time.Time) (bool, error) {
	return false, errors.New("not implemented")
}

func (m *mockSessionRepo) DeleteStartedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.deleteStartedBeforeFunc != nil {
		return m.deleteStartedBeforeFunc(ctx, cutoff)
	}
	return 0, nil
}

// Ensure mock implements interface
var _ database.SessionRepositoryInterface = (*mockSessionRepo)(nil)

// mockJobQueue is a mock implementation of JobQueue
type mockJobQueue struct {
	enqueueFunc func(ctx context.Context, job *queue.Job) error
}

func (m *mockJobQueue) Enqueue(ctx context.Context, job *queue.Job) error {
	if m.enqueueFunc != nil {
		return m.enqueueFunc(ctx, job)
	}
	return nil
}

func (m *mockJobQueue) Dequeue(ctx context.Context) (*queue.Message, error) { return nil, nil }

func (m *mockJobQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, errors.New("not implemented")
}

func (m *mockJobQueue) Close() error { return nil }

func (m *mockJobQueue) HealthCheck(ctx context.Context) error { return nil }

// Ensure mock implements interface
var _ queue.JobQueue = (*mockJobQueue)(nil)

func TestProcessPlanGenerationJob(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	planID := uuid.New()

	var storedContent *models.PlanContent
	planRepo := &mockPlanRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
			return &models.Plan{
				ID:       id,
				UserID:   userID,
				Goal:     "learn Go",
				PlanType: "study",
				Timeline: "2 weeks",
				Status:   models.PlanStatusPending,
			}, nil
		},
		setContentFunc: func(ctx context.Context, id uuid.UUID, content *models.PlanContent) error {
			storedContent = content
			return nil
		},
	}

	var gotReq ai.PlanRequest
	provider := &mockAIProvider{
		generatePlanFunc: func(ctx context.Context, req ai.PlanRequest) (*models.PlanContent, error) {
			gotReq = req
			return &models.PlanContent{
				Title:  "Go in 2 Weeks",
				Phases: []models.PlanPhase{{Title: "P1", Tasks: []models.PlanTask{{Task: "read"}}}},
			}, nil
		},
	}

	gen := NewPlanGenerator(provider, planRepo, nil, &mockJobQueue{})
	job := queue.NewJob(queue.JobTypePlanGeneration, userID, &planID)

	if err := gen.ProcessPlanGenerationJob(context.Background(), job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotReq.Goal != "learn Go" || gotReq.Timeline != "2 weeks" {
		t.Errorf("unexpected plan request: %+v", gotReq)
	}
	if storedContent == nil || storedContent.Title != "Go in 2 Weeks" {
		t.Errorf("expected content stored, got %+v", storedContent)
	}
}

func TestProcessPlanGenerationJobRequiresPlanID(t *testing.T) {
	t.Parallel()

	gen := NewPlanGenerator(&mockAIProvider{}, &mockPlanRepo{}, nil, &mockJobQueue{})
	job := queue.NewJob(queue.JobTypePlanGeneration, uuid.New(), nil)

	if err := gen.ProcessPlanGenerationJob(context.Background(), job); err == nil {
		t.Fatal("expected error for missing plan ID")
	}
}

func TestProcessPlanGenerationJobRejectsWrongUser(t *testing.T) {
	t.Parallel()

	planID := uuid.New()
	planRepo := &mockPlanRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
			return &models.Plan{ID: id, UserID: uuid.New(), Status: models.PlanStatusPending}, nil
		},
	}

	gen := NewPlanGenerator(&mockAIProvider{}, planRepo, nil, &mockJobQueue{})
	job := queue.NewJob(queue.JobTypePlanGeneration, uuid.New(), &planID)

	if err := gen.ProcessPlanGenerationJob(context.Background(), job); err == nil {
		t.Fatal("expected ownership error")
	}
}

func TestProcessPlanGenerationJobSkipsReadyPlan(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	planID := uuid.New()
	called := false

	planRepo := &mockPlanRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
			return &models.Plan{ID: id, UserID: userID, Status: models.PlanStatusReady}, nil
		},
	}
	provider := &mockAIProvider{
		generatePlanFunc: func(ctx context.Context, req ai.PlanRequest) (*models.PlanContent, error) {
			called = true
			return nil, errors.New("should not be called")
		},
	}

	gen := NewPlanGenerator(provider, planRepo, nil, &mockJobQueue{})
	job := queue.NewJob(queue.JobTypePlanGeneration, userID, &planID)

	if err := gen.ProcessPlanGenerationJob(context.Background(), job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Error("provider should not be called for ready plans")
	}
}

func TestProcessSessionCleanupJob(t *testing.T) {
	t.Parallel()

	var gotCutoff time.Time
	sessionRepo := &mockSessionRepo{
		deleteStartedBeforeFunc: func(ctx context.Context, cutoff time.Time) (int64, error) {
			gotCutoff = cutoff
			return 7, nil
		},
	}

	var scheduled *queue.Job
	jobQueue := &mockJobQueue{
		enqueueFunc: func(ctx context.Context, job *queue.Job) error {
			scheduled = job
			return nil
		},
	}

	cleaner := NewSessionCleaner(jobQueue, sessionRepo, zap.NewNop())
	job := queue.NewJob(queue.JobTypeSessionCleanup, uuid.Nil, nil)

	if err := cleaner.ProcessSessionCleanupJob(context.Background(), job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now := time.Now()
	wantCutoff := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if !gotCutoff.Equal(wantCutoff) {
		t.Errorf("expected cutoff at start of today %v, got %v", wantCutoff, gotCutoff)
	}

	if scheduled == nil {
		t.Fatal("expected next cleanup job scheduled")
	}
	if scheduled.Type != queue.JobTypeSessionCleanup {
		t.Errorf("unexpected job type: %s", scheduled.Type)
	}
	if scheduled.NotBefore == nil || !scheduled.NotBefore.After(now) {
		t.Errorf("expected future NotBefore, got %v", scheduled.NotBefore)
	}
}

func TestProcessSessionCleanupJobPropagatesRepoError(t *testing.T) {
	t.Parallel()

	sessionRepo := &mockSessionRepo{
		deleteStartedBeforeFunc: func(ctx context.Context, cutoff time.Time) (int64, error) {
			return 0, errors.New("disk on fire")
		},
	}

	cleaner := NewSessionCleaner(&mockJobQueue{}, sessionRepo, zap.NewNop())
	job := queue.NewJob(queue.JobTypeSessionCleanup, uuid.Nil, nil)

	if err := cleaner.ProcessSessionCleanupJob(context.Background(), job); err == nil {
		t.Fatal("expected error")
	}
}
