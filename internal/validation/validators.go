package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/boostday/boostday/internal/models"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	// These should never fail in normal operation, but log if they do
	if err := Validate.RegisterValidation("task_type", validateTaskType); err != nil {
		panic(fmt.Sprintf("failed to register task_type validator: %v", err))
	}
	if err := Validate.RegisterValidation("session_mode", validateSessionMode); err != nil {
		panic(fmt.Sprintf("failed to register session_mode validator: %v", err))
	}
	if err := Validate.RegisterValidation("plan_type", validatePlanType); err != nil {
		panic(fmt.Sprintf("failed to register plan_type validator: %v", err))
	}
}

// validateTaskType validates that a string is a valid TaskType enum value
func validateTaskType(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	switch models.TaskType(value) {
	case models.TaskTypeWork, models.TaskTypeMeeting, models.TaskTypePersonal, models.TaskTypeLearning:
		return true
	default:
		return false
	}
}

// validateSessionMode validates that a string is a valid SessionMode enum value
func validateSessionMode(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	switch models.SessionMode(value) {
	case models.SessionModeWork, models.SessionModeBreak:
		return true
	default:
		return false
	}
}

// validatePlanType validates that a string is a valid plan type value
func validatePlanType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "study", "project", "fitness", "custom":
		return true
	default:
		return false
	}
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	// Trim whitespace
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateTaskType validates a TaskType string value
func ValidateTaskType(value string) error {
	switch models.TaskType(value) {
	case models.TaskTypeWork, models.TaskTypeMeeting, models.TaskTypePersonal, models.TaskTypeLearning:
		return nil
	default:
		return fmt.Errorf("invalid type: %s (must be 'work', 'meeting', 'personal', or 'learning')", value)
	}
}

// ValidateSessionMode validates a SessionMode string value
func ValidateSessionMode(value string) error {
	switch models.SessionMode(value) {
	case models.SessionModeWork, models.SessionModeBreak:
		return nil
	default:
		return fmt.Errorf("invalid mode: %s (must be 'work' or 'break')", value)
	}
}

// ValidatePlanType validates a plan type string value
func ValidatePlanType(value string) error {
	switch value {
	case "study", "project", "fitness", "custom":
		return nil
	default:
		return fmt.Errorf("invalid plan_type: %s (must be 'study', 'project', 'fitness', or 'custom')", value)
	}
}
