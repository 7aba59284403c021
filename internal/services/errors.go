package services

import (
	"errors"
	"strings"

	"google.golang.org/api/googleapi"
)

// Typed service errors, mapped to HTTP responses by handleServiceError.

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

type ConflictError struct{ Message string }

func (e *ConflictError) Error() string { return e.Message }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

type UnauthorizedError struct{ Message string }

func (e *UnauthorizedError) Error() string { return e.Message }

type ForbiddenError struct{ Message string }

func (e *ForbiddenError) Error() string { return e.Message }

type RateLimitError struct{ Message string }

func (e *RateLimitError) Error() string { return e.Message }

// User-facing codes for upstream LLM failures.
const (
	CodeInvalidAPIKey     = "INVALID_API_KEY"
	CodeRateLimited       = "RATE_LIMITED"
	CodeModelNotFound     = "MODEL_NOT_FOUND"
	CodeVisionUnsupported = "VISION_UNSUPPORTED"
	CodeAIError           = "AI_ERROR"
)

// ClassifyAIError maps a provider error onto a small fixed set of user-facing
// codes. Structured googleapi status codes are checked first; substring
// matching on the message is the fallback only, since provider wording
// changes silently.
func ClassifyAIError(err error) (code, message string) {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case 400, 401, 403:
			if strings.Contains(strings.ToLower(gerr.Message), "api key") ||
				strings.Contains(gerr.Message, "API_KEY") {
				return CodeInvalidAPIKey, "Your API key was rejected. Check it in settings."
			}
		case 404:
			return CodeModelNotFound, "The selected chat model is not available."
		case 429:
			return CodeRateLimited, "The AI provider is rate limiting requests. Try again shortly."
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "api key") || strings.Contains(msg, "api_key_invalid") || strings.Contains(msg, "permission denied"):
		return CodeInvalidAPIKey, "Your API key was rejected. Check it in settings."
	case strings.Contains(msg, "quota") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "resource exhausted") || strings.Contains(msg, "429"):
		return CodeRateLimited, "The AI provider is rate limiting requests. Try again shortly."
	case strings.Contains(msg, "not found") && strings.Contains(msg, "model"):
		return CodeModelNotFound, "The selected chat model is not available."
	case strings.Contains(msg, "image input") || strings.Contains(msg, "does not support images") || strings.Contains(msg, "vision"):
		return CodeVisionUnsupported, "The selected chat model cannot read image attachments."
	default:
		return CodeAIError, err.Error()
	}
}
