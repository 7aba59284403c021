// Package usage persists per-turn LLM token usage for billing analysis.
// Recording is best effort and never blocks or fails the chat stream.
package usage

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"skinny-studio-backend/internal/catalog"
	"skinny-studio-backend/internal/models"
)

type usageStore interface {
	Insert(ctx context.Context, rec *models.UsageRecord) error
}

type Recorder struct {
	store usageStore
}

func NewRecorder(store usageStore) *Recorder {
	return &Recorder{store: store}
}

// Record writes one usage row in the background. Turns with no token counts
// (the provider sent no usage metadata) are skipped rather than recorded as
// zero-cost rows.
func (r *Recorder) Record(userID uuid.UUID, model string, promptTokens, responseTokens, totalTokens int, platformKey bool) {
	if totalTokens == 0 {
		return
	}

	rec := &models.UsageRecord{
		UserID:             userID,
		Model:              model,
		PromptTokens:       promptTokens,
		ResponseTokens:     responseTokens,
		TotalTokens:        totalTokens,
		EstimatedCostCents: catalog.ChatCostCents(model, promptTokens, responseTokens),
		IsPlatformKey:      platformKey,
	}

	// Detached from the request context: the stream is already closed by
	// the time this runs.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := r.store.Insert(ctx, rec); err != nil {
			log.Printf("usage: failed to record %d tokens for user %s: %v", totalTokens, userID, err)
		}
	}()
}
