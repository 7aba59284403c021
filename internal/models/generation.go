package models

import (
	"time"

	"github.com/google/uuid"
)

// ImageInput is an attachment forwarded to the generation endpoint together
// with the purpose the user assigned to it.
type ImageInput struct {
	URL      string `json:"url,omitempty"`
	Base64   string `json:"base64,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Purpose  string `json:"purpose"`
}

// GenerateRequest is the body of POST /api/v1/generations. The chat
// dispatcher sends it with NoWait set so a slow job comes back as a pending
// generation id instead of blocking the stream.
type GenerateRequest struct {
	Model                     string                 `json:"model"`
	Prompt                    string                 `json:"prompt"`
	Params                    map[string]interface{} `json:"params,omitempty"`
	Duration                  *int                   `json:"duration,omitempty"`
	Resolution                string                 `json:"resolution,omitempty"`
	SequentialImageGeneration string                 `json:"sequentialImageGeneration,omitempty"`
	MaxImages                 int                    `json:"maxImages,omitempty"`
	Images                    []ImageInput           `json:"images,omitempty"`
	NoWait                    bool                   `json:"noWait,omitempty"`
}

// GenerateResponse covers the three downstream outcomes the dispatcher
// reconciles: immediate success, pending/poll-needed, or error.
type GenerateResponse struct {
	Success      bool     `json:"success,omitempty"`
	ImageURL     string   `json:"imageUrl,omitempty"`
	OutputURLs   []string `json:"outputUrls,omitempty"`
	Pending      bool     `json:"pending,omitempty"`
	GenerationID string   `json:"generationId,omitempty"`
	Error        string   `json:"error,omitempty"`
	Code         string   `json:"code,omitempty"`
	Required     *int64   `json:"required,omitempty"`
	Available    *int64   `json:"available,omitempty"`
}

// Generation is a persisted generation job row. Rows exist only for jobs that
// were accepted (immediately succeeded or pending on the provider).
type Generation struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	Model        string     `json:"model"`
	Prompt       string     `json:"prompt"`
	Status       string     `json:"status"` // "pending" | "succeeded" | "failed"
	ProviderID   *string    `json:"-"`      // Replicate prediction id
	OutputURLs   []string   `json:"output_urls"`
	ErrorMessage *string    `json:"error_message"`
	CostCents    int64      `json:"cost_cents"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at"`
}

const (
	GenerationPending   = "pending"
	GenerationSucceeded = "succeeded"
	GenerationFailed    = "failed"
)

// PollJob is the unit pushed onto the Redis poll queue for pending
// Replicate predictions.
type PollJob struct {
	GenerationID uuid.UUID `json:"generation_id"`
	UserID       uuid.UUID `json:"user_id"`
	PredictionID string    `json:"prediction_id"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
}

// GenerationUpdate is pushed over the WebSocket hub when a poll worker
// observes a state change. Supplementary to client polling.
type GenerationUpdate struct {
	GenerationID uuid.UUID `json:"generation_id"`
	Status       string    `json:"status"`
	OutputURLs   []string  `json:"output_urls,omitempty"`
	Error        string    `json:"error,omitempty"`
}
