package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/boostday/boostday/internal/database"
	"github.com/boostday/boostday/internal/models"
)

// mockSessionRepo is a mock implementation of SessionRepositoryInterface
type mockSessionRepo struct {
	createFunc              func(ctx context.Context, session *models.PomodoroSession) error
	getByIDFunc             func(ctx context.Context, id uuid.UUID) (*models.PomodoroSession, error)
	getByUserIDFunc         func(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*models.PomodoroSession, error)
	markCompletedFunc       func(ctx context.Context, id uuid.UUID, completedAt time.Time) (bool, error)
	deleteStartedBeforeFunc func(ctx context.Context, cutoff time.Time) (int64, error)
}

var _ database.SessionRepositoryInterface = (*mockSessionRepo)(nil)

func (m *mockSessionRepo) Create(ctx context.Context, session *models.PomodoroSession) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, session)
	}
	return nil
}

func (m *mockSessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.PomodoroSession, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockSessionRepo) GetByUserID(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*models.PomodoroSession, error) {
	if m.getByUserIDFunc != nil {
		return m.getByUserIDFunc(ctx, userID, from, to)
	}
	return nil, nil
}

func (m *mockSessionRepo) MarkCompleted(ctx context.Context, id uuid.UUID, completedAt time.Time) (bool, error) {
	if m.markCompletedFunc != nil {
		return m.markCompletedFunc(ctx, id, completedAt)
	}
	return true, nil
}

func (m *mockSessionRepo) DeleteStartedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.deleteStartedBeforeFunc != nil {
		return m.deleteStartedBeforeFunc(ctx, cutoff)
	}
	return 0, nil
}

func TestStartSession(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       any
		wantStatus int
	}{
		{
			name:       "valid work session",
			body:       map[string]any{"task_name": "Deep work", "mode": "work", "duration": 1500},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "valid break session",
			body:       map[string]any{"mode": "break", "duration": 300},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "invalid mode",
			body:       map[string]any{"mode": "nap", "duration": 1500},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "duration too short",
			body:       map[string]any{"mode": "work", "duration": 10},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "duration too long",
			body:       map[string]any{"mode": "work", "duration": 100000},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var created *models.PomodoroSession
			repo := &mockSessionRepo{
				createFunc: func(ctx context.Context, session *models.PomodoroSession) error {
					created = session
					return nil
				},
			}
			handler := NewSessionHandler(repo, newTestStatsService(&mockDailyStatsRepo{}))

			user := testUser()
			req := authedRequest(t, user, "POST", "/sessions", tt.body)
			w := httptest.NewRecorder()
			handler.StartSession(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}

			if tt.wantStatus == http.StatusCreated {
				if created == nil {
					t.Fatal("Expected session to be persisted")
				}
				if created.UserID != user.ID {
					t.Errorf("Expected session to belong to user %s, got %s", user.ID, created.UserID)
				}
				if created.StartedAt.IsZero() {
					t.Error("Expected started_at to be set")
				}
			}
		})
	}
}

func TestCompleteSession_WorkSessionRecordsActivity(t *testing.T) {
	t.Parallel()

	user := testUser()
	sessionID := uuid.New()
	startedAt := time.Now().Add(-25 * time.Minute)

	repo := &mockSessionRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.PomodoroSession, error) {
			return &models.PomodoroSession{
				ID:        sessionID,
				UserID:    user.ID,
				Mode:      models.SessionModeWork,
				Duration:  1500,
				StartedAt: startedAt,
			}, nil
		},
	}

	var gotEventID uuid.UUID
	var gotDelta models.ActivityDelta
	statsRepo := &mockDailyStatsRepo{
		applyDeltaFunc: func(ctx context.Context, userID, eventID uuid.UUID, date time.Time, delta models.ActivityDelta, recompute database.RecomputeFunc) (*models.DailyStats, error) {
			gotEventID = eventID
			gotDelta = delta
			return &models.DailyStats{UserID: userID, Date: date, PomodoroSessions: 1, FocusTime: delta.FocusMinutes}, nil
		},
	}

	handler := NewSessionHandler(repo, newTestStatsService(statsRepo))

	req := authedRequest(t, user, "POST", "/sessions/"+sessionID.String()+"/complete", nil)
	req = mux.SetURLVars(req, map[string]string{"id": sessionID.String()})
	w := httptest.NewRecorder()
	handler.CompleteSession(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	// The session ID doubles as the activity event ID
	if gotEventID != sessionID {
		t.Errorf("Expected event ID %s, got %s", sessionID, gotEventID)
	}
	if gotDelta.PomodoroSessions != 1 {
		t.Errorf("Expected pomodoro delta of 1, got %d", gotDelta.PomodoroSessions)
	}
	// 25 elapsed minutes against a 25 minute timer
	if gotDelta.FocusMinutes != 25 {
		t.Errorf("Expected 25 focus minutes, got %d", gotDelta.FocusMinutes)
	}
	if gotDelta.TasksCompleted != 0 {
		t.Errorf("Expected no task delta, got %d", gotDelta.TasksCompleted)
	}
}

func TestCompleteSession_BreakSessionSkipsStats(t *testing.T) {
	t.Parallel()

	user := testUser()
	sessionID := uuid.New()

	repo := &mockSessionRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.PomodoroSession, error) {
			return &models.PomodoroSession{
				ID:        sessionID,
				UserID:    user.ID,
				Mode:      models.SessionModeBreak,
				Duration:  300,
				StartedAt: time.Now().Add(-5 * time.Minute),
			}, nil
		},
	}

	statsRepo := &mockDailyStatsRepo{
		applyDeltaFunc: func(ctx context.Context, userID, eventID uuid.UUID, date time.Time, delta models.ActivityDelta, recompute database.RecomputeFunc) (*models.DailyStats, error) {
			t.Error("Expected no activity record for a break session")
			return nil, nil
		},
	}

	handler := NewSessionHandler(repo, newTestStatsService(statsRepo))

	req := authedRequest(t, user, "POST", "/sessions/"+sessionID.String()+"/complete", nil)
	req = mux.SetURLVars(req, map[string]string{"id": sessionID.String()})
	w := httptest.NewRecorder()
	handler.CompleteSession(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestCompleteSession_ReplayDoesNotDoubleCount(t *testing.T) {
	t.Parallel()

	// A replayed completion still reaches the stats service; the event
	// ledger, keyed by session ID, returns the already-recorded row instead
	// of counting again. A retry after a failed recording lands the delta
	// through the same path.
	user := testUser()
	sessionID := uuid.New()
	completedAt := time.Now().Add(-time.Minute)

	repo := &mockSessionRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.PomodoroSession, error) {
			return &models.PomodoroSession{
				ID:          sessionID,
				UserID:      user.ID,
				Mode:        models.SessionModeWork,
				Duration:    1500,
				StartedAt:   completedAt.Add(-25 * time.Minute),
				Completed:   true,
				CompletedAt: &completedAt,
			}, nil
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
			return &models.DailyStats{UserID: userID, Date: date, PomodoroSessions: 1, FocusTime: 25}, nil
		},
	}

	handler := NewSessionHandler(repo, newTestStatsService(statsRepo))

	req := authedRequest(t, user, "POST", "/sessions/"+sessionID.String()+"/complete", nil)
	req = mux.SetURLVars(req, map[string]string{"id": sessionID.String()})
	w := httptest.NewRecorder()
	handler.CompleteSession(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if applyCalls != 1 {
		t.Errorf("Expected one ledger-checked recording, got %d", applyCalls)
	}
	if gotEventID != sessionID {
		t.Errorf("Expected event ID %s, got %s", sessionID, gotEventID)
	}
}

func TestCompleteSession_ForeignSessionForbidden(t *testing.T) {
	t.Parallel()

	owner := testUser()
	other := testUser()
	sessionID := uuid.New()

	repo := &mockSessionRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.PomodoroSession, error) {
			return &models.PomodoroSession{ID: sessionID, UserID: owner.ID, Mode: models.SessionModeWork}, nil
		},
	}
	handler := NewSessionHandler(repo, newTestStatsService(&mockDailyStatsRepo{}))

	req := authedRequest(t, other, "POST", "/sessions/"+sessionID.String()+"/complete", nil)
	req = mux.SetURLVars(req, map[string]string{"id": sessionID.String()})
	w := httptest.NewRecorder()
	handler.CompleteSession(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for foreign session, got %d", w.Code)
	}
}

func TestListSessions_DefaultsToToday(t *testing.T) {
	t.Parallel()

	user := testUser()

	var gotFrom, gotTo time.Time
	repo := &mockSessionRepo{
		getByUserIDFunc: func(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*models.PomodoroSession, error) {
			gotFrom = from
			gotTo = to
			return nil, nil
		},
	}
	handler := NewSessionHandler(repo, newTestStatsService(&mockDailyStatsRepo{}))

	req := authedRequest(t, user, "GET", "/sessions", nil)
	w := httptest.NewRecorder()
	handler.ListSessions(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	now := time.Now()
	wantFrom := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if !gotFrom.Equal(wantFrom) {
		t.Errorf("Expected from bound %s, got %s", wantFrom, gotFrom)
	}
	if !gotTo.Equal(wantFrom.Add(24 * time.Hour)) {
		t.Errorf("Expected to bound %s, got %s", wantFrom.Add(24*time.Hour), gotTo)
	}
}
