package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"skinny-studio-backend/internal/models"
)

var (
	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studio_chat_ai_requests_total",
			Help: "Total number of chat requests to the LLM provider.",
		},
		[]string{"model", "status"},
	)
	aiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "studio_chat_ai_request_duration_seconds",
			Help:    "Histogram of LLM stream durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model"},
	)
	aiPromptTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "studio_chat_ai_prompt_tokens",
			Help:    "Histogram of prompt token counts.",
			Buckets: prometheus.LinearBuckets(500, 500, 16),
		},
		[]string{"model"},
	)
	aiResponseTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "studio_chat_ai_response_tokens",
			Help:    "Histogram of response token counts.",
			Buckets: prometheus.LinearBuckets(100, 100, 20),
		},
		[]string{"model"},
	)
)

// UsageInfo is the provider's aggregated token usage for one chat turn.
type UsageInfo struct {
	PromptTokens   int
	ResponseTokens int
	TotalTokens    int
}

// GeminiService streams chat completions from Gemini. Clients are created
// per call because the API key may be the user's own rather than the
// platform's.
type GeminiService struct {
	platformKey  string
	defaultModel string
	temperature  float32
}

func NewGeminiService(platformKey, defaultModel string) *GeminiService {
	return &GeminiService{
		platformKey:  platformKey,
		defaultModel: defaultModel,
		temperature:  0.7,
	}
}

// ResolveKey picks the user-supplied key when present, otherwise the
// platform key. The second return reports whether the platform key was used.
func (s *GeminiService) ResolveKey(userKey string) (string, bool) {
	if strings.TrimSpace(userKey) != "" {
		return userKey, false
	}
	return s.platformKey, s.platformKey != ""
}

// DefaultModel returns the configured orchestrator model id.
func (s *GeminiService) DefaultModel() string { return s.defaultModel }

// StreamChat sends the conversation to Gemini and invokes onChunk for every
// text delta, in arrival order, on the calling goroutine. It returns the
// provider's usage metadata once the stream is exhausted. An error from
// onChunk aborts the stream.
func (s *GeminiService) StreamChat(
	ctx context.Context,
	apiKey, modelID, systemInstruction string,
	messages []models.ChatMessage,
	onChunk func(string) error,
) (UsageInfo, error) {
	usage := UsageInfo{}

	if modelID == "" {
		modelID = s.defaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return usage, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(modelID)
	model.SetTemperature(s.temperature)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemInstruction)},
	}

	history, last, err := toGeminiContents(messages)
	if err != nil {
		return usage, err
	}

	cs := model.StartChat()
	cs.History = history

	start := time.Now()
	iter := cs.SendMessageStream(ctx, last...)

	for {
		resp, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			aiRequestsTotal.With(prometheus.Labels{"model": modelID, "status": "error"}).Inc()
			return usage, err
		}

		if resp.UsageMetadata != nil && resp.UsageMetadata.TotalTokenCount > 0 {
			usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
			usage.ResponseTokens = int(resp.UsageMetadata.CandidatesTokenCount)
			usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
		}

		chunk := extractText(resp)
		if chunk == "" {
			continue
		}
		if err := onChunk(chunk); err != nil {
			aiRequestsTotal.With(prometheus.Labels{"model": modelID, "status": "client_abort"}).Inc()
			return usage, fmt.Errorf("stream consumer failed: %w", err)
		}
	}

	duration := time.Since(start)
	aiRequestsTotal.With(prometheus.Labels{"model": modelID, "status": "success"}).Inc()
	aiRequestDuration.With(prometheus.Labels{"model": modelID}).Observe(duration.Seconds())
	if usage.TotalTokens > 0 {
		aiPromptTokens.With(prometheus.Labels{"model": modelID}).Observe(float64(usage.PromptTokens))
		aiResponseTokens.With(prometheus.Labels{"model": modelID}).Observe(float64(usage.ResponseTokens))
	} else {
		log.Printf("gemini: no usage metadata received for model %s", modelID)
	}

	return usage, nil
}

// GenerateImage runs a Gemini image model synchronously and returns the
// produced images as data URLs. Used by the generation endpoint for
// gemini-provider models; Replicate models go through ReplicateClient.
func (s *GeminiService) GenerateImage(ctx context.Context, apiKey, modelName, promptText string, images []models.ImageInput) ([]string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(modelName)

	parts := []genai.Part{genai.Text(promptText)}
	for _, img := range images {
		blob, ok := imageBlob(img)
		if !ok {
			continue
		}
		parts = append(parts, blob)
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, err
	}

	var urls []string
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if blob, ok := part.(genai.Blob); ok {
				urls = append(urls, fmt.Sprintf("data:%s;base64,%s",
					blob.MIMEType, base64.StdEncoding.EncodeToString(blob.Data)))
			}
		}
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("model returned no image output")
	}
	return urls, nil
}

// toGeminiContents splits the conversation into history plus the parts of
// the final user message, which SendMessageStream takes separately.
func toGeminiContents(messages []models.ChatMessage) ([]*genai.Content, []genai.Part, error) {
	if len(messages) == 0 {
		return nil, nil, fmt.Errorf("conversation is empty")
	}
	if messages[len(messages)-1].Role != "user" {
		return nil, nil, fmt.Errorf("conversation must end with a user message")
	}

	var history []*genai.Content
	for _, m := range messages[:len(messages)-1] {
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: messageParts(m),
		})
	}

	return history, messageParts(messages[len(messages)-1]), nil
}

// messageParts renders a chat message for Gemini. Inline base64 images
// become blobs; URL-only attachments become a text annotation carrying the
// purpose, so the orchestrator still knows what the user attached.
func messageParts(m models.ChatMessage) []genai.Part {
	parts := []genai.Part{}
	if m.Content != "" {
		parts = append(parts, genai.Text(m.Content))
	}

	for _, att := range m.Attachments {
		if att.Type != "image" && att.Type != "reference" {
			continue
		}
		purpose := att.Purpose
		if purpose == "" {
			purpose = models.PurposeReference
		}
		if blob, ok := imageBlob(models.ImageInput{Base64: att.Base64, MimeType: att.MimeType}); ok {
			parts = append(parts, blob)
			parts = append(parts, genai.Text(fmt.Sprintf("[attached image %q, purpose: %s]", att.Name, purpose)))
			continue
		}
		if att.URL != "" {
			parts = append(parts, genai.Text(fmt.Sprintf("[attached image %q at %s, purpose: %s]", att.Name, att.URL, purpose)))
		}
	}

	if len(parts) == 0 {
		parts = append(parts, genai.Text(""))
	}
	return parts
}

func imageBlob(img models.ImageInput) (genai.Blob, bool) {
	raw := img.Base64
	if raw == "" {
		return genai.Blob{}, false
	}
	// Accept both bare base64 and data URLs.
	if idx := strings.Index(raw, ";base64,"); idx >= 0 {
		raw = raw[idx+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		log.Printf("gemini: skipping undecodable image attachment: %v", err)
		return genai.Blob{}, false
	}

	mime := img.MimeType
	if mime == "" {
		mime = "image/png"
	}
	return genai.Blob{MIMEType: mime, Data: data}, true
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
