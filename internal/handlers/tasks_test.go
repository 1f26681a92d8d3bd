package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/boostday/boostday/internal/database"
	"github.com/boostday/boostday/internal/metrics"
	"github.com/boostday/boostday/internal/middleware"
	"github.com/boostday/boostday/internal/models"
	"github.com/boostday/boostday/internal/services/stats"
)

// mockTaskRepo is a mock implementation of TaskRepositoryInterface
type mockTaskRepo struct {
	createFunc         func(ctx context.Context, task *models.Task) error
	getByIDFunc        func(ctx context.Context, id uuid.UUID) (*models.Task, error)
	getByUserIDFunc    func(ctx context.Context, userID uuid.UUID, from, to *time.Time, completed *bool) ([]*models.Task, error)
	countScheduledFunc func(ctx context.Context, userID uuid.UUID, from, to time.Time) (int, error)
	updateFunc         func(ctx context.Context, task *models.Task) error
	markCompletedFunc  func(ctx context.Context, id uuid.UUID, completedAt time.Time) (bool, error)
	deleteFunc         func(ctx context.Context, id uuid.UUID) error
}

var _ database.TaskRepositoryInterface = (*mockTaskRepo)(nil)

func (m *mockTaskRepo) Create(ctx context.Context, task *models.Task) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, task)
	}
	return nil
}

func (m *mockTaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockTaskRepo) GetByUserID(ctx context.Context, userID uuid.UUID, from, to *time.Time, completed *bool) ([]*models.Task, error) {
	if m.getByUserIDFunc != nil {
		return m.getByUserIDFunc(ctx, userID, from, to, completed)
	}
	return nil, nil
}

func (m *mockTaskRepo) CountScheduled(ctx context.Context, userID uuid.UUID, from, to time.Time) (int, error) {
	if m.countScheduledFunc != nil {
		return m.countScheduledFunc(ctx, userID, from, to)
	}
	return 0, nil
}

func (m *mockTaskRepo) Update(ctx context.Context, task *models.Task) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, task)
	}
	return nil
}

func (m *mockTaskRepo) MarkCompleted(ctx context.Context, id uuid.UUID, completedAt time.Time) (bool, error) {
	if m.markCompletedFunc != nil {
		return m.markCompletedFunc(ctx, id, completedAt)
	}
	return true, nil
}

func (m *mockTaskRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

// mockDailyStatsRepo is a mock implementation of DailyStatsRepositoryInterface
type mockDailyStatsRepo struct {
	applyDeltaFunc          func(ctx context.Context, userID, eventID uuid.UUID, date time.Time, delta models.ActivityDelta, recompute database.RecomputeFunc) (*models.DailyStats, error)
	getByUserAndDateFunc    func(ctx context.Context, userID uuid.UUID, date time.Time) (*models.DailyStats, error)
	getHistoryFunc          func(ctx context.Context, userID uuid.UUID, upTo time.Time, limit int) ([]*models.DailyStats, error)
	getCumulativeTotalsFunc func(ctx context.Context, userID uuid.UUID) (models.CumulativeTotals, error)
	getAvgEfficiencyFunc    func(ctx context.Context, userID uuid.UUID) (int, error)
}

var _ database.DailyStatsRepositoryInterface = (*mockDailyStatsRepo)(nil)

func (m *mockDailyStatsRepo) ApplyDelta(ctx context.Context, userID, eventID uuid.UUID, date time.Time, delta models.ActivityDelta, recompute database.RecomputeFunc) (*models.DailyStats, error) {
	if m.applyDeltaFunc != nil {
		return m.applyDeltaFunc(ctx, userID, eventID, date, delta, recompute)
	}
	return &models.DailyStats{UserID: userID, Date: date}, nil
}

func (m *mockDailyStatsRepo) GetByUserAndDate(ctx context.Context, userID uuid.UUID, date time.Time) (*models.DailyStats, error) {
	if m.getByUserAndDateFunc != nil {
		return m.getByUserAndDateFunc(ctx, userID, date)
	}
	return nil, nil
}

func (m *mockDailyStatsRepo) GetHistory(ctx context.Context, userID uuid.UUID, upTo time.Time, limit int) ([]*models.DailyStats, error) {
	if m.getHistoryFunc != nil {
		return m.getHistoryFunc(ctx, userID, upTo, limit)
	}
	return nil, nil
}

func (m *mockDailyStatsRepo) GetCumulativeTotals(ctx context.Context, userID uuid.UUID) (models.CumulativeTotals, error) {
	if m.getCumulativeTotalsFunc != nil {
		return m.getCumulativeTotalsFunc(ctx, userID)
	}
	return models.CumulativeTotals{}, nil
}

func (m *mockDailyStatsRepo) GetAverageEfficiency(ctx context.Context, userID uuid.UUID) (int, error) {
	if m.getAvgEfficiencyFunc != nil {
		return m.getAvgEfficiencyFunc(ctx, userID)
	}
	return 0, nil
}

func newTestStatsService(repo *mockDailyStatsRepo) *stats.Service {
	return stats.NewService(repo, metrics.DefaultCatalog(), zap.NewNop())
}

func authedRequest(t *testing.T, user *models.User, method, path string, body any) *http.Request {
	t.Helper()
	req := newTestRequest(method, path, body)
	return req.WithContext(middleware.SetUserInContext(req.Context(), user))
}

func testUser() *models.User {
	return &models.User{
		ID:    uuid.New(),
		Email: "test@example.com",
	}
}

func TestCreateTask(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       any
		wantStatus int
	}{
		{
			name: "valid task",
			body: map[string]any{
				"title":      "Write report",
				"type":       "work",
				"start_time": time.Now().Format(time.RFC3339),
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "missing title",
			body: map[string]any{
				"type":       "work",
				"start_time": time.Now().Format(time.RFC3339),
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "invalid type",
			body: map[string]any{
				"title":      "Write report",
				"type":       "chores",
				"start_time": time.Now().Format(time.RFC3339),
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "missing start time",
			body: map[string]any{
				"title": "Write report",
				"type":  "work",
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "title is only whitespace",
			body: map[string]any{
				"title":      "   ",
				"type":       "work",
				"start_time": time.Now().Format(time.RFC3339),
			},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var created *models.Task
			repo := &mockTaskRepo{
				createFunc: func(ctx context.Context, task *models.Task) error {
					created = task
					return nil
				},
			}
			handler := NewTaskHandler(repo, newTestStatsService(&mockDailyStatsRepo{}))

			user := testUser()
			req := authedRequest(t, user, "POST", "/tasks", tt.body)
			w := httptest.NewRecorder()
			handler.CreateTask(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}

			if tt.wantStatus == http.StatusCreated {
				if created == nil {
					t.Fatal("Expected task to be persisted")
				}
				if created.UserID != user.ID {
					t.Errorf("Expected task to belong to user %s, got %s", user.ID, created.UserID)
				}
				if created.Completed {
					t.Error("Expected new task to be incomplete")
				}
			}
		})
	}
}

func TestCreateTask_Unauthorized(t *testing.T) {
	t.Parallel()

	handler := NewTaskHandler(&mockTaskRepo{}, newTestStatsService(&mockDailyStatsRepo{}))

	req := newTestRequest("POST", "/tasks", map[string]any{"title": "x"})
	w := httptest.NewRecorder()
	handler.CreateTask(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestGetTask_OwnershipEnforced(t *testing.T) {
	t.Parallel()

	owner := testUser()
	other := testUser()
	taskID := uuid.New()

	repo := &mockTaskRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Task, error) {
			return &models.Task{ID: taskID, UserID: owner.ID, Title: "secret"}, nil
		},
	}
	handler := NewTaskHandler(repo, newTestStatsService(&mockDailyStatsRepo{}))

	req := authedRequest(t, other, "GET", "/tasks/"+taskID.String(), nil)
	req = mux.SetURLVars(req, map[string]string{"id": taskID.String()})
	w := httptest.NewRecorder()
	handler.GetTask(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for foreign task, got %d", w.Code)
	}
}

func TestCompleteTask_RecordsActivity(t *testing.T) {
	t.Parallel()

	user := testUser()
	taskID := uuid.New()

	repo := &mockTaskRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Task, error) {
			return &models.Task{ID: taskID, UserID: user.ID, Title: "Write report", Type: models.TaskTypeWork}, nil
		},
		markCompletedFunc: func(ctx context.Context, id uuid.UUID, completedAt time.Time) (bool, error) {
			return true, nil
		},
	}

	var gotEventID uuid.UUID
	var gotDelta models.ActivityDelta
	statsRepo := &mockDailyStatsRepo{
		applyDeltaFunc: func(ctx context.Context, userID, eventID uuid.UUID, date time.Time, delta models.ActivityDelta, recompute database.RecomputeFunc) (*models.DailyStats, error) {
			gotEventID = eventID
			gotDelta = delta
			return &models.DailyStats{UserID: userID, Date: date, TasksCompleted: 1}, nil
		},
	}

	handler := NewTaskHandler(repo, newTestStatsService(statsRepo))

	req := authedRequest(t, user, "POST", "/tasks/"+taskID.String()+"/complete", nil)
	req = mux.SetURLVars(req, map[string]string{"id": taskID.String()})
	w := httptest.NewRecorder()
	handler.CompleteTask(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	// The task ID doubles as the activity event ID
	if gotEventID != taskID {
		t.Errorf("Expected event ID %s, got %s", taskID, gotEventID)
	}
	if gotDelta.TasksCompleted != 1 {
		t.Errorf("Expected tasks_completed delta of 1, got %d", gotDelta.TasksCompleted)
	}
	if gotDelta.PomodoroSessions != 0 || gotDelta.FocusMinutes != 0 {
		t.Errorf("Expected no session/focus delta, got %+v", gotDelta)
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	data := body["data"].(map[string]any)
	if _, ok := data["stats"]; !ok {
		t.Error("Expected updated stats in response")
	}
}

func TestCompleteTask_ReplayDedupedByEventLedger(t *testing.T) {
	t.Parallel()

	// Completing an already-completed task still goes through the stats
	// service; the event ledger, keyed by task ID, is what keeps the replay
	// from double counting.
	user := testUser()
	taskID := uuid.New()
	completedAt := time.Now().Add(-time.Hour)

	repo := &mockTaskRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Task, error) {
			return &models.Task{ID: taskID, UserID: user.ID, Completed: true, CompletedAt: &completedAt}, nil
		},
		markCompletedFunc: func(ctx context.Context, id uuid.UUID, completedAt time.Time) (bool, error) {
			return false, nil
		},
	}

	applyCalls := 0
	var gotEventID uuid.UUID
	statsRepo := &mockDailyStatsRepo{
		applyDeltaFunc: func(ctx context.Context, userID, eventID uuid.UUID, date time.Time, delta models.ActivityDelta, recompute database.RecomputeFunc) (*models.DailyStats, error) {
			applyCalls++
			gotEventID = eventID
			// Ledger hit: the row keeps its original count.
			return &models.DailyStats{UserID: userID, Date: date, TasksCompleted: 1}, nil
		},
	}

	handler := NewTaskHandler(repo, newTestStatsService(statsRepo))

	req := authedRequest(t, user, "POST", "/tasks/"+taskID.String()+"/complete", nil)
	req = mux.SetURLVars(req, map[string]string{"id": taskID.String()})
	w := httptest.NewRecorder()
	handler.CompleteTask(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if applyCalls != 1 {
		t.Errorf("Expected one ledger-checked recording, got %d", applyCalls)
	}
	if gotEventID != taskID {
		t.Errorf("Expected event ID %s, got %s", taskID, gotEventID)
	}
}

func TestCompleteTask_RetryAfterFailedRecordingLandsDelta(t *testing.T) {
	t.Parallel()

	// First attempt flipped the row but recording failed. The retry sees an
	// already-completed task; the delta must still be recorded rather than
	// silently dropped.
	user := testUser()
	taskID := uuid.New()
	completedAt := time.Now().Add(-time.Minute)

	repo := &mockTaskRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Task, error) {
			return &models.Task{ID: taskID, UserID: user.ID, Completed: true, CompletedAt: &completedAt}, nil
		},
		markCompletedFunc: func(ctx context.Context, id uuid.UUID, completedAt time.Time) (bool, error) {
			return false, nil
		},
	}

	var gotDelta models.ActivityDelta
	statsRepo := &mockDailyStatsRepo{
		applyDeltaFunc: func(ctx context.Context, userID, eventID uuid.UUID, date time.Time, delta models.ActivityDelta, recompute database.RecomputeFunc) (*models.DailyStats, error) {
			gotDelta = delta
			return &models.DailyStats{UserID: userID, Date: date, TasksCompleted: 1}, nil
		},
	}

	handler := NewTaskHandler(repo, newTestStatsService(statsRepo))

	req := authedRequest(t, user, "POST", "/tasks/"+taskID.String()+"/complete", nil)
	req = mux.SetURLVars(req, map[string]string{"id": taskID.String()})
	w := httptest.NewRecorder()
	handler.CompleteTask(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if gotDelta.TasksCompleted != 1 {
		t.Errorf("Expected the retry to record tasks_completed delta of 1, got %d", gotDelta.TasksCompleted)
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	data := body["data"].(map[string]any)
	if _, ok := data["stats"]; !ok {
		t.Error("Expected updated stats in response")
	}
}

func TestListTasks_WindowParsing(t *testing.T) {
	t.Parallel()

	user := testUser()

	var gotFrom, gotTo *time.Time
	repo := &mockTaskRepo{
		getByUserIDFunc: func(ctx context.Context, userID uuid.UUID, from, to *time.Time, completed *bool) ([]*models.Task, error) {
			gotFrom = from
			gotTo = to
			return nil, nil
		},
	}
	handler := NewTaskHandler(repo, newTestStatsService(&mockDailyStatsRepo{}))

	req := authedRequest(t, user, "GET", "/tasks?from=2026-08-01T00:00:00Z&to=2026-09-01T00:00:00Z", nil)
	w := httptest.NewRecorder()
	handler.ListTasks(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if gotFrom == nil || gotTo == nil {
		t.Fatal("Expected window bounds to be passed to the repository")
	}
	if !gotFrom.Equal(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected from bound: %s", gotFrom)
	}

	// Empty result comes back as an empty array, not null
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if _, ok := body["data"].([]any); !ok {
		t.Errorf("Expected data to be an array, got %T", body["data"])
	}
}

func TestListTasks_InvalidWindow(t *testing.T) {
	t.Parallel()

	handler := NewTaskHandler(&mockTaskRepo{}, newTestStatsService(&mockDailyStatsRepo{}))

	req := authedRequest(t, testUser(), "GET", "/tasks?from=notadate", nil)
	w := httptest.NewRecorder()
	handler.ListTasks(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}
