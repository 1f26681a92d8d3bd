package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/boostday/boostday/internal/database"
	"github.com/boostday/boostday/internal/models"
)

func TestStatsToday_EmptyDayReturnsZeroedRow(t *testing.T) {
	t.Parallel()

	user := testUser()
	handler := NewStatsHandler(newTestStatsService(&mockDailyStatsRepo{}))

	req := authedRequest(t, user, "GET", "/stats/today", nil)
	w := httptest.NewRecorder()
	handler.Today(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	data := body["data"].(map[string]any)
	if data["pomodoro_sessions"].(float64) != 0 {
		t.Errorf("Expected zero sessions, got %v", data["pomodoro_sessions"])
	}
	if data["level"].(float64) != 1 {
		t.Errorf("Expected level 1 for an empty day, got %v", data["level"])
	}
}

func TestStatsHistory_LimitHandling(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		query     string
		wantCode  int
		wantLimit int
	}{
		{name: "default limit", query: "", wantCode: http.StatusOK, wantLimit: DefaultHistoryDays},
		{name: "explicit limit", query: "?limit=7", wantCode: http.StatusOK, wantLimit: 7},
		{name: "limit beyond cap is clamped", query: "?limit=10000", wantCode: http.StatusOK, wantLimit: MaxHistoryDays},
		{name: "invalid limit", query: "?limit=abc", wantCode: http.StatusBadRequest},
		{name: "negative limit", query: "?limit=-1", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var gotLimit int
			repo := &mockDailyStatsRepo{
				getHistoryFunc: func(ctx context.Context, userID uuid.UUID, upTo time.Time, limit int) ([]*models.DailyStats, error) {
					gotLimit = limit
					return nil, nil
				},
			}
			handler := NewStatsHandler(newTestStatsService(repo))

			req := authedRequest(t, testUser(), "GET", "/stats/history"+tt.query, nil)
			w := httptest.NewRecorder()
			handler.History(w, req)

			if w.Code != tt.wantCode {
				t.Fatalf("Expected status %d, got %d: %s", tt.wantCode, w.Code, w.Body.String())
			}
			if tt.wantCode == http.StatusOK && gotLimit != tt.wantLimit {
				t.Errorf("Expected limit %d to reach the repository, got %d", tt.wantLimit, gotLimit)
			}
		})
	}
}

func TestStatsSummary(t *testing.T) {
	t.Parallel()

	user := testUser()
	today := time.Now().UTC().Truncate(24 * time.Hour)
	repo := &mockDailyStatsRepo{
		getCumulativeTotalsFunc: func(ctx context.Context, userID uuid.UUID) (models.CumulativeTotals, error) {
			return models.CumulativeTotals{
				PomodoroSessions: 10,
				TasksCompleted:   5,
				FocusMinutes:     300,
			}, nil
		},
		// The streak is recomputed from history on every read; three
		// consecutive active days make a 3-day streak.
		getHistoryFunc: func(ctx context.Context, userID uuid.UUID, upTo time.Time, limit int) ([]*models.DailyStats, error) {
			return []*models.DailyStats{
				{Date: today, PomodoroSessions: 4},
				{Date: today.AddDate(0, 0, -1), PomodoroSessions: 3},
				{Date: today.AddDate(0, 0, -2), PomodoroSessions: 3},
			}, nil
		},
	}
	handler := NewStatsHandler(newTestStatsService(repo))

	req := authedRequest(t, user, "GET", "/stats/summary", nil)
	w := httptest.NewRecorder()
	handler.Summary(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	data := body["data"].(map[string]any)

	// 10*50 + 5*20 + 3*100 = 900 points, level 2
	if data["points"].(float64) != 900 {
		t.Errorf("Expected 900 points, got %v", data["points"])
	}
	if data["level"].(float64) != 2 {
		t.Errorf("Expected level 2, got %v", data["level"])
	}
	if _, ok := data["achievements"].([]any); !ok {
		t.Error("Expected achievements list in summary")
	}
}

func TestRecordActivityEndpoint(t *testing.T) {
	t.Parallel()

	user := testUser()
	eventID := uuid.New()

	var gotEventID uuid.UUID
	var gotDelta models.ActivityDelta
	repo := &mockDailyStatsRepo{
		applyDeltaFunc: func(ctx context.Context, userID, eventID uuid.UUID, date time.Time, delta models.ActivityDelta, recompute database.RecomputeFunc) (*models.DailyStats, error) {
			gotEventID = eventID
			gotDelta = delta
			return &models.DailyStats{UserID: userID, Date: date, FocusTime: delta.FocusMinutes}, nil
		},
	}
	handler := NewStatsHandler(newTestStatsService(repo))

	req := authedRequest(t, user, "POST", "/stats/activity", map[string]any{
		"event_id":      eventID.String(),
		"date":          time.Now().Format(time.RFC3339),
		"focus_minutes": 25,
	})
	w := httptest.NewRecorder()
	handler.RecordActivity(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if gotEventID != eventID {
		t.Errorf("Expected client event ID %s to be used, got %s", eventID, gotEventID)
	}
	if gotDelta.FocusMinutes != 25 {
		t.Errorf("Expected 25 focus minutes, got %d", gotDelta.FocusMinutes)
	}
}

func TestRecordActivityEndpoint_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body any
	}{
		{
			name: "missing event ID",
			body: map[string]any{"date": time.Now().Format(time.RFC3339), "focus_minutes": 25},
		},
		{
			name: "missing date",
			body: map[string]any{"event_id": uuid.New().String(), "focus_minutes": 25},
		},
		{
			name: "negative counter",
			body: map[string]any{"event_id": uuid.New().String(), "date": time.Now().Format(time.RFC3339), "focus_minutes": -5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := NewStatsHandler(newTestStatsService(&mockDailyStatsRepo{}))

			req := authedRequest(t, testUser(), "POST", "/stats/activity", tt.body)
			w := httptest.NewRecorder()
			handler.RecordActivity(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}
