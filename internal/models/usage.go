package models

import (
	"time"

	"github.com/google/uuid"
)

// UsageRecord is a write-once, append-only row of LLM token usage for one
// chat turn. Best effort: there is no read path in this subsystem.
type UsageRecord struct {
	ID                 uuid.UUID `json:"id"`
	UserID             uuid.UUID `json:"user_id"`
	Model              string    `json:"model"`
	PromptTokens       int       `json:"prompt_tokens"`
	ResponseTokens     int       `json:"response_tokens"`
	TotalTokens        int       `json:"total_tokens"`
	EstimatedCostCents float64   `json:"estimated_cost_cents"`
	IsPlatformKey      bool      `json:"is_platform_key"`
	CreatedAt          time.Time `json:"created_at"`
}
