package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/boostday/boostday/internal/middleware"
	"github.com/boostday/boostday/internal/services/ai"
	"github.com/boostday/boostday/internal/services/stats"
)

// ChatHandler handles AI coach chat requests
type ChatHandler struct {
	chatService  *ai.ChatService
	statsService *stats.Service
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *ai.ChatService, statsService *stats.Service) *ChatHandler {
	return &ChatHandler{
		chatService:  chatService,
		statsService: statsService,
	}
}

// RegisterRoutes registers chat routes
func (h *ChatHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/chat", h.StartChat).Methods("POST")
	r.HandleFunc("/chat/message", h.SendMessage).Methods("POST")
}

// ChatMessageRequest represents a chat message request
type ChatMessageRequest struct {
	Message string `json:"message" validate:"required"`
}

// StartChat starts a chat session and returns SSE stream
func (h *ChatHandler) StartChat(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	// Set up SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	// Get or create chat session
	session := h.chatService.GetOrCreateSession(user.ID)

	// Send initial connection message
	if _, err := fmt.Fprintf(w, "data: %s\n\n", h.formatSSEMessage("connected", map[string]any{
		"message":    "Chat session started",
		"session_id": session.UserID.String(),
	})); err != nil {
		log.Printf("Failed to write SSE message: %v", err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if ok {
		flusher.Flush()
	}

	// Keep connection alive with ping every 30 seconds
	ctx := r.Context()
	// Create independent context for cleanup work before request context is cancelled
	cleanupCtx := context.WithoutCancel(ctx)
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := fmt.Fprintf(w, ": ping\n\n"); err != nil {
					return
				}
				if flusher != nil {
					flusher.Flush()
				}
			}
		}
	}()

	// Wait for context cancellation (client disconnect)
	<-ctx.Done()

	// Summarize the conversation before closing so the coach remembers it
	// next time. The request context is already cancelled, so run in a
	// background goroutine with an independent context.
	if session.NeedsSummaryUpdate && len(session.Messages) > 0 {
		go func(ctx context.Context) {
			updateCtx, updateCancel := context.WithTimeout(ctx, 5*time.Second)
			defer updateCancel()

			if _, err := h.chatService.SummarizeSession(updateCtx, session); err != nil {
				log.Printf("Failed to save chat summary: %v", err)
			}
		}(cleanupCtx)
	} else {
		h.chatService.CloseSession(user.ID)
	}
}

// SendMessage sends a message in the chat session
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req ChatMessageRequest
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}
	if req.Message == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Message is required")
		return
	}

	// Get or create session
	session := h.chatService.GetOrCreateSession(user.ID)

	// Add user message
	h.chatService.AddMessage(session, "user", req.Message)

	// Ground the coach in the user's actual numbers
	ctx := r.Context()
	coachCtx := &ai.CoachContext{}
	if today, err := h.statsService.Today(ctx, user.ID, time.Now()); err == nil {
		coachCtx.Today = today
	} else {
		log.Printf("Failed to load today's stats for chat context: %v", err)
	}
	if summary, err := h.statsService.Summarize(ctx, user.ID); err == nil {
		coachCtx.Totals = summary.Totals
	} else {
		log.Printf("Failed to load cumulative totals for chat context: %v", err)
	}

	// Get AI response
	response, err := h.chatService.GetResponse(ctx, session, coachCtx)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to get AI response")
		return
	}

	// Periodically summarize the conversation (every 10 messages)
	if len(session.Messages) > 0 && len(session.Messages)%10 == 0 {
		go func(ctx context.Context) {
			summaryCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()

			if _, err := h.chatService.SummarizeSession(summaryCtx, session); err != nil {
				log.Printf("Failed to summarize conversation: %v", err)
			}
		}(context.WithoutCancel(ctx))
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message":      response.Message,
		"summary":      response.Summary,
		"needs_update": response.NeedsUpdate,
	})
}

// formatSSEMessage formats a message for SSE
func (h *ChatHandler) formatSSEMessage(event string, data any) string {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return ""
	}
	return fmt.Sprintf(`{"event":"%s","data":%s}`, event, string(jsonData))
}
