package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"

	"github.com/boostday/boostday/internal/models"
)

const (
	// DefaultOpenAIModel is the default model to use
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultOpenAIBaseURL is the default OpenAI API base URL
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout is the default timeout for API calls
	DefaultTimeout = 30 * time.Second

	// ErrNoChoicesInResponse is returned when the API response has no choices
	ErrNoChoicesInResponse = "no choices in response"
)

// OpenAIProvider implements the AIProvider interface using OpenAI's API
type OpenAIProvider struct {
	client    openai.Client
	model     string
	logger    *zap.Logger
	debugMode bool
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey string, model string) *OpenAIProvider {
	return NewOpenAIProviderWithLogger(apiKey, DefaultOpenAIBaseURL, model, nil, false)
}

// NewOpenAIProviderWithLogger creates a new OpenAI provider with logger support
func NewOpenAIProviderWithLogger(apiKey string, baseURL string, model string, logger *zap.Logger, debugMode bool) *OpenAIProvider {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}

	httpClient := &http.Client{
		Timeout: DefaultTimeout,
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
	)

	return &OpenAIProvider{
		client:    client,
		model:     model,
		logger:    logger,
		debugMode: debugMode,
	}
}

// GeneratePlan generates a structured work plan for a goal
func (p *OpenAIProvider) GeneratePlan(ctx context.Context, planReq PlanRequest) (*models.PlanContent, error) {
	prompt := buildPlanPrompt(planReq)
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage("You are a productivity planning assistant. You create realistic, phased work plans. Respond with valid JSON only, matching the schema the user describes."),
		openai.UserMessage(prompt),
	}
	req := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: messages,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	requestID := ExtractRequestID(ctx)
	userIDStr := ExtractUserID(ctx)
	planIDStr := ExtractPlanID(ctx)
	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_request",
			zap.String("operation", "generate_plan"),
			zap.String("model", p.model),
			zap.Int("prompt_length", len(prompt)),
			zap.String("prompt_preview", SanitizePrompt(prompt, true)),
			zap.String("user_id", userIDStr),
			zap.String("plan_id", planIDStr),
			zap.String("request_id", requestID),
		)
	}

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, req)
	latency := time.Since(start)
	if err != nil {
		if p.logger != nil && p.debugMode {
			p.logger.Debug("llm_api_error",
				zap.String("operation", "generate_plan"),
				zap.String("model", p.model),
				zap.Error(err),
				zap.String("user_id", userIDStr),
				zap.String("plan_id", planIDStr),
				zap.String("request_id", requestID),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)
		}
		if apiErr := ExtractAPIError(err); apiErr != nil {
			return nil, fmt.Errorf("failed to generate plan: %w", apiErr)
		}
		return nil, fmt.Errorf("failed to generate plan: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New(ErrNoChoicesInResponse)
	}

	content := resp.Choices[0].Message.Content
	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_response",
			zap.String("operation", "generate_plan"),
			zap.String("model", p.model),
			zap.Int("response_length", len(content)),
			zap.String("response_preview", SanitizeResponse(content, true)),
			zap.String("user_id", userIDStr),
			zap.String("plan_id", planIDStr),
			zap.String("request_id", requestID),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	return parsePlanContent(content)
}

// parsePlanContent parses and validates the model's plan JSON. Models
// sometimes wrap JSON in prose, so a brace-delimited substring is tried
// before giving up.
func parsePlanContent(content string) (*models.PlanContent, error) {
	plan := &models.PlanContent{}
	raw := content
	if err := json.Unmarshal([]byte(raw), plan); err != nil {
		if len(raw) > 0 && raw[0] != '{' {
			start := bytes.Index([]byte(raw), []byte("{"))
			end := bytes.LastIndex([]byte(raw), []byte("}"))
			if start != -1 && end != -1 && end > start {
				raw = raw[start : end+1]
			}
		}
		if err := json.Unmarshal([]byte(raw), plan); err != nil {
			return nil, fmt.Errorf("failed to parse plan response: %w", err)
		}
	}

	if plan.Title == "" {
		return nil, fmt.Errorf("invalid plan response: missing title")
	}
	if len(plan.Phases) == 0 {
		return nil, fmt.Errorf("invalid plan response: no phases")
	}
	for i, phase := range plan.Phases {
		if len(phase.Tasks) == 0 {
			return nil, fmt.Errorf("invalid plan response: phase %d has no tasks", i+1)
		}
		for j, task := range phase.Tasks {
			switch task.Priority {
			case "high", "medium", "low":
			default:
				plan.Phases[i].Tasks[j].Priority = "medium"
			}
		}
	}

	return plan, nil
}

func buildPlanPrompt(req PlanRequest) string {
	header := fmt.Sprintf("Create a work plan.\n\nGoal: %q\nPlan type: %s\nTimeline: %s\n", req.Goal, req.PlanType, req.Timeline)
	if req.Details != "" {
		header += fmt.Sprintf("Additional details: %s\n", req.Details)
	}
	if req.Deadline != "" {
		header += fmt.Sprintf("Deadline: %s\n", req.Deadline)
	}

	prompt := header + `
Respond with a JSON object of this shape:
{
  "title": "plan title",
  "duration": "human readable duration",
  "totalHours": 24.5,
  "phases": [
    {
      "title": "phase title",
      "duration": "e.g. week 1",
      "tasks": [
        {"task": "actionable item", "hours": 2.5, "priority": "high"}
      ]
    }
  ]
}

Priorities must be one of high, medium, low. Keep phases between 2 and 4 and tasks per phase between 3 and 6.`

	return prompt
}

// Chat handles a coach chat message and returns the AI response
func (p *OpenAIProvider) Chat(ctx context.Context, messages []ChatMessage, coachCtx *CoachContext) (*ChatResponse, error) {
	requestID := ExtractRequestID(ctx)
	userIDStr := ExtractUserID(ctx)

	systemContent := "You are a supportive productivity coach. You help users build focus habits, plan their days, and keep their streaks alive. Be concise and practical."
	if coachCtx != nil {
		systemContent += "\n\n" + formatCoachContext(coachCtx)
	}

	openAIMessages := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	openAIMessages = append(openAIMessages, openai.SystemMessage(systemContent))

	for _, msg := range messages {
		switch msg.Role {
		case "user":
			openAIMessages = append(openAIMessages, openai.UserMessage(msg.Content))
		case "assistant":
			openAIMessages = append(openAIMessages, openai.AssistantMessage(msg.Content))
		default:
			openAIMessages = append(openAIMessages, openai.UserMessage(msg.Content))
		}
	}

	if p.logger != nil && p.debugMode {
		messagePreviews := make([]string, 0, len(messages))
		for _, msg := range messages {
			messagePreviews = append(messagePreviews, SanitizePrompt(msg.Content, false))
		}
		p.logger.Debug("llm_api_request",
			zap.String("operation", "chat"),
			zap.String("model", p.model),
			zap.Int("message_count", len(openAIMessages)),
			zap.Strings("message_previews", messagePreviews),
			zap.String("user_id", userIDStr),
			zap.String("request_id", requestID),
		)
	}

	req := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: openAIMessages,
		// Temperature omitted - use model default to avoid "unsupported_value" errors
		// Some models only support their default temperature value
	}

	startTime := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, req)
	latency := time.Since(startTime)

	if err != nil {
		if p.logger != nil && p.debugMode {
			p.logger.Debug("llm_api_error",
				zap.String("operation", "chat"),
				zap.String("model", p.model),
				zap.Error(err),
				zap.String("user_id", userIDStr),
				zap.String("request_id", requestID),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)
		}
		if apiErr := ExtractAPIError(err); apiErr != nil {
			return nil, fmt.Errorf("failed to chat: %w", apiErr)
		}
		return nil, fmt.Errorf("failed to chat: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New(ErrNoChoicesInResponse)
	}

	content := resp.Choices[0].Message.Content

	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_response",
			zap.String("operation", "chat"),
			zap.String("model", p.model),
			zap.Int("response_length", len(content)),
			zap.String("response_preview", SanitizeResponse(content, true)),
			zap.String("user_id", userIDStr),
			zap.String("request_id", requestID),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	return &ChatResponse{
		Message:     content,
		NeedsUpdate: true, // Always update context after chat
	}, nil
}

// formatCoachContext renders the user's numbers into prompt text
func formatCoachContext(c *CoachContext) string {
	text := fmt.Sprintf("User's all-time numbers: %d pomodoro sessions, %d tasks completed, %d focus minutes, current streak %d days.",
		c.Totals.PomodoroSessions,
		c.Totals.TasksCompleted,
		c.Totals.FocusMinutes,
		c.Totals.StreakDays,
	)
	if c.Today != nil {
		text += fmt.Sprintf(" Today: %d sessions, %d tasks, %d focus minutes, efficiency score %d.",
			c.Today.PomodoroSessions,
			c.Today.TasksCompleted,
			c.Today.FocusTime,
			c.Today.EfficiencyScore,
		)
	}
	if c.Summary != "" {
		text += "\n\nConversation context: " + c.Summary
	}
	return text
}

// SummarizeContext summarizes a conversation history into a context summary
func (p *OpenAIProvider) SummarizeContext(ctx context.Context, conversationHistory []ChatMessage) (string, error) {
	requestID := ExtractRequestID(ctx)
	userIDStr := ExtractUserID(ctx)

	prompt := "Summarize the following coaching conversation into a concise context that captures the user's goals, struggles, and preferences. Focus on what would help give better advice next time.\n\nConversation:\n"
	for _, msg := range conversationHistory {
		prompt += fmt.Sprintf("%s: %s\n", msg.Role, msg.Content)
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage("You are a helpful assistant that creates concise summaries of conversations. Focus on extracting user goals and patterns."),
		openai.UserMessage(prompt),
	}

	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_request",
			zap.String("operation", "summarize_context"),
			zap.String("model", p.model),
			zap.Int("conversation_length", len(conversationHistory)),
			zap.Int("prompt_length", len(prompt)),
			zap.String("prompt_preview", SanitizePrompt(prompt, false)),
			zap.String("user_id", userIDStr),
			zap.String("request_id", requestID),
		)
	}

	req := openai.ChatCompletionNewParams{
		Model:     shared.ChatModel(p.model),
		Messages:  messages,
		MaxTokens: openai.Int(500), // Limit summary length
	}

	startTime := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, req)
	latency := time.Since(startTime)

	if err != nil {
		if p.logger != nil && p.debugMode {
			p.logger.Debug("llm_api_error",
				zap.String("operation", "summarize_context"),
				zap.String("model", p.model),
				zap.Error(err),
				zap.String("user_id", userIDStr),
				zap.String("request_id", requestID),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)
		}
		if apiErr := ExtractAPIError(err); apiErr != nil {
			return "", fmt.Errorf("failed to summarize context: %w", apiErr)
		}
		return "", fmt.Errorf("failed to summarize context: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New(ErrNoChoicesInResponse)
	}

	content := resp.Choices[0].Message.Content

	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_response",
			zap.String("operation", "summarize_context"),
			zap.String("model", p.model),
			zap.Int("response_length", len(content)),
			zap.String("response_preview", SanitizeResponse(content, true)),
			zap.String("user_id", userIDStr),
			zap.String("request_id", requestID),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	return content, nil
}

// RegisterOpenAI registers the OpenAI provider with the registry
func RegisterOpenAI(registry *ProviderRegistry) {
	registry.Register("openai", func(config map[string]string) (AIProvider, error) {
		apiKey, ok := config["api_key"]
		if !ok || apiKey == "" {
			return nil, fmt.Errorf("openai api_key is required")
		}

		model := config["model"]
		baseURL := config["base_url"]

		return NewOpenAIProviderWithLogger(apiKey, baseURL, model, nil, false), nil
	})
}

// Ensure OpenAIProvider satisfies the interface
var _ AIProvider = (*OpenAIProvider)(nil)
