package ai

import (
	"context"

	"github.com/boostday/boostday/internal/models"
)

// AIProvider is the interface for AI providers
type AIProvider interface {
	// GeneratePlan generates a structured work plan for a goal
	GeneratePlan(ctx context.Context, req PlanRequest) (*models.PlanContent, error)

	// Chat handles a coach chat message and returns the AI response
	Chat(ctx context.Context, messages []ChatMessage, coachCtx *CoachContext) (*ChatResponse, error)

	// SummarizeContext summarizes a conversation history into a context summary
	SummarizeContext(ctx context.Context, conversationHistory []ChatMessage) (string, error)
}

// PlanRequest describes the plan the user wants generated
type PlanRequest struct {
	Goal     string `json:"goal"`
	PlanType string `json:"plan_type"` // study, project, fitness, custom
	Timeline string `json:"timeline"`  // e.g. "2 weeks"
	Details  string `json:"details,omitempty"`
	Deadline string `json:"deadline,omitempty"`
}

// CoachContext carries the user's current productivity picture into the
// coach prompt so advice is grounded in real numbers
type CoachContext struct {
	Today   *models.DailyStats      `json:"today,omitempty"`
	Totals  models.CumulativeTotals `json:"totals"`
	Summary string                  `json:"summary,omitempty"`
}

// ChatMessage represents a message in a chat conversation
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// ChatResponse represents a response from the AI chat
type ChatResponse struct {
	Message     string `json:"message"`
	Summary     string `json:"summary,omitempty"`      // Optional summary of the conversation
	NeedsUpdate bool   `json:"needs_update,omitempty"` // Whether context needs updating
}

// ProviderFactory creates an AI provider based on the provider type
type ProviderFactory func(config map[string]string) (AIProvider, error)

// ProviderRegistry stores available AI providers
type ProviderRegistry struct {
	providers map[string]ProviderFactory
}

// NewProviderRegistry creates a new provider registry
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[string]ProviderFactory),
	}
}

// Register registers a provider factory
func (r *ProviderRegistry) Register(name string, factory ProviderFactory) {
	r.providers[name] = factory
}

// GetProvider gets a provider by name
func (r *ProviderRegistry) GetProvider(name string, config map[string]string) (AIProvider, error) {
	factory, ok := r.providers[name]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}

	return factory(config)
}

// ErrProviderNotFound is returned when a provider is not found
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return "AI provider not found: " + e.Name
}
