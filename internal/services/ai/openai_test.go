package ai

import (
	"strings"
	"testing"
)

func TestParsePlanContent(t *testing.T) {
	t.Parallel()

	valid := `{
		"title": "Learn Go in 2 Weeks",
		"duration": "2 weeks",
		"totalHours": 24,
		"phases": [
			{
				"title": "Fundamentals",
				"duration": "week 1",
				"tasks": [
					{"task": "Read the tour", "hours": 4, "priority": "high"},
					{"task": "Write small programs", "hours": 8, "priority": "medium"}
				]
			},
			{
				"title": "A real project",
				"duration": "week 2",
				"tasks": [
					{"task": "Build a CLI tool", "hours": 12, "priority": "high"}
				]
			}
		]
	}`

	plan, err := parsePlanContent(valid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Title != "Learn Go in 2 Weeks" {
		t.Errorf("unexpected title: %s", plan.Title)
	}
	if len(plan.Phases) != 2 {
		t.Fatalf("expected 2 phases, got %d", len(plan.Phases))
	}
	if plan.Phases[0].Tasks[0].Priority != "high" {
		t.Errorf("unexpected priority: %s", plan.Phases[0].Tasks[0].Priority)
	}
}

func TestParsePlanContentWithSurroundingProse(t *testing.T) {
	t.Parallel()

	wrapped := `Here is your plan:
{"title": "Plan", "duration": "1 week", "totalHours": 5, "phases": [{"title": "Phase", "duration": "week 1", "tasks": [{"task": "Do it", "hours": 5, "priority": "high"}]}]}
Good luck!`

	plan, err := parsePlanContent(wrapped)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Title != "Plan" {
		t.Errorf("unexpected title: %s", plan.Title)
	}
}

func TestParsePlanContentNormalizesBadPriority(t *testing.T) {
	t.Parallel()

	content := `{"title": "Plan", "duration": "1 week", "totalHours": 5, "phases": [{"title": "Phase", "duration": "week 1", "tasks": [{"task": "Do it", "hours": 5, "priority": "urgent"}]}]}`

	plan, err := parsePlanContent(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := plan.Phases[0].Tasks[0].Priority; got != "medium" {
		t.Errorf("expected unknown priority normalized to medium, got %s", got)
	}
}

func TestParsePlanContentRejectsInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		errPart string
	}{
		{
			name:    "not JSON",
			content: "sorry, I can't do that",
			errPart: "failed to parse",
		},
		{
			name:    "missing title",
			content: `{"duration": "1 week", "phases": [{"title": "P", "tasks": [{"task": "t"}]}]}`,
			errPart: "missing title",
		},
		{
			name:    "no phases",
			content: `{"title": "Plan", "duration": "1 week", "phases": []}`,
			errPart: "no phases",
		},
		{
			name:    "empty phase",
			content: `{"title": "Plan", "duration": "1 week", "phases": [{"title": "P", "tasks": []}]}`,
			errPart: "has no tasks",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := parsePlanContent(tt.content)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.errPart) {
				t.Errorf("expected error containing %q, got %v", tt.errPart, err)
			}
		})
	}
}

func TestBuildPlanPromptIncludesRequest(t *testing.T) {
	t.Parallel()

	prompt := buildPlanPrompt(PlanRequest{
		Goal:     "pass the algorithms exam",
		PlanType: "study",
		Timeline: "3 weeks",
	})

	for _, want := range []string{"pass the algorithms exam", "study", "3 weeks", "high, medium, low", "between 2 and 4", "between 3 and 6"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(prompt, "Additional details") || strings.Contains(prompt, "Deadline:") {
		t.Error("optional lines should be omitted when empty")
	}

	prompt = buildPlanPrompt(PlanRequest{
		Goal:     "ship the release",
		PlanType: "project",
		Timeline: "2 weeks",
		Details:  "backend is done, frontend remains",
		Deadline: "2026-09-15",
	})
	if !strings.Contains(prompt, "backend is done, frontend remains") {
		t.Errorf("prompt missing details: %s", prompt)
	}
	if !strings.Contains(prompt, "2026-09-15") {
		t.Errorf("prompt missing deadline: %s", prompt)
	}
}

func TestFormatCoachContext(t *testing.T) {
	t.Parallel()

	c := &CoachContext{}
	c.Totals.PomodoroSessions = 42
	c.Totals.StreakDays = 6
	c.Summary = "wants to study more consistently"

	text := formatCoachContext(c)
	if !strings.Contains(text, "42 pomodoro sessions") {
		t.Errorf("missing totals: %s", text)
	}
	if !strings.Contains(text, "streak 6 days") {
		t.Errorf("missing streak: %s", text)
	}
	if !strings.Contains(text, "wants to study more consistently") {
		t.Errorf("missing summary: %s", text)
	}
}
