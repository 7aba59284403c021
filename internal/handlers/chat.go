package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"skinny-studio-backend/internal/catalog"
	"skinny-studio-backend/internal/directive"
	"skinny-studio-backend/internal/generation"
	"skinny-studio-backend/internal/middleware"
	"skinny-studio-backend/internal/models"
	"skinny-studio-backend/internal/prompt"
	"skinny-studio-backend/internal/services"
	"skinny-studio-backend/internal/sse"
)

type chatStreamer interface {
	ResolveKey(userKey string) (string, bool)
	DefaultModel() string
	StreamChat(ctx context.Context, apiKey, modelID, systemInstruction string, messages []models.ChatMessage, onChunk func(string) error) (services.UsageInfo, error)
}

type skillResolver interface {
	GetByShortcuts(ctx context.Context, userID uuid.UUID, shortcuts []string) ([]*models.Skill, error)
	Create(ctx context.Context, s *models.Skill) error
}

type generationDispatcher interface {
	Dispatch(ctx context.Context, d *models.GenerationDirective, images []models.ImageInput, inbound http.Header) models.GenerationStatus
}

type usageRecorder interface {
	Record(userID uuid.UUID, model string, promptTokens, responseTokens, totalTokens int, platformKey bool)
}

type ChatHandler struct {
	streamer   chatStreamer
	skills     skillResolver
	dispatcher generationDispatcher
	usage      usageRecorder
}

func NewChatHandler(streamer chatStreamer, skills skillResolver, dispatcher generationDispatcher, usage usageRecorder) *ChatHandler {
	return &ChatHandler{
		streamer:   streamer,
		skills:     skills,
		dispatcher: dispatcher,
		usage:      usage,
	}
}

// Stream is POST /api/v1/chat. It streams LLM deltas over SSE, watches the
// accumulating text for fenced directives, dispatches at most one generation
// after the stream closes, and records token usage.
func (h *ChatHandler) Stream(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if len(req.Messages) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Messages are required", r))
		return
	}
	if req.Messages[len(req.Messages)-1].Role != "user" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Conversation must end with a user message", r))
		return
	}

	apiKey, platformKey := h.streamer.ResolveKey(req.APIKey)
	if apiKey == "" {
		writeJSON(w, http.StatusUnauthorized, errorResp("NO_API_KEY", "No API key available. Add one in settings.", r))
		return
	}

	userID := middleware.GetUserID(r.Context())

	// Consultant mode is selected through the generation-model picker.
	consultant := req.SelectedGenerationModelID == catalog.ConsultantModelID
	chatModel := req.ModelID
	if chatModel == "" {
		chatModel = h.streamer.DefaultModel()
	}

	systemInstruction := h.composeInstruction(r.Context(), userID, &req, consultant)

	// Validation is done; from here on everything is SSE frames.
	stream, err := sse.NewWriter(w)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Streaming is not supported", r))
		return
	}

	var buffer strings.Builder
	planningSent := false

	usageInfo, streamErr := h.streamer.StreamChat(r.Context(), apiKey, chatModel, systemInstruction, req.Messages, func(chunk string) error {
		if err := stream.SendJSON(models.ContentFrame{Content: chunk}); err != nil {
			return err
		}
		buffer.WriteString(chunk)

		// Planning affordance: fires once, as soon as the parser first
		// sees a complete generate block in the growing buffer.
		if !planningSent && !consultant && directive.HasFence(buffer.String(), "generate") {
			planningSent = true
			if err := stream.SendJSON(models.GenerationFrame{
				Generation: models.GenerationStatus{Status: models.StatusPlanning},
			}); err != nil {
				return err
			}
		}
		return nil
	})

	h.usage.Record(userID, chatModel, usageInfo.PromptTokens, usageInfo.ResponseTokens, usageInfo.TotalTokens, platformKey)

	if streamErr != nil {
		code, message := services.ClassifyAIError(streamErr)
		log.Printf("chat stream failed for user %s: %v", userID, streamErr)
		stream.SendJSON(models.StreamErrorFrame{Error: message, Code: code})
		stream.SendDone()
		return
	}

	full := buffer.String()

	if d, ok := directive.ParseSkillCreation(full); ok {
		h.saveSkill(r.Context(), userID, d)
		stream.SendJSON(models.SkillCreationFrame{SkillCreation: *d})
	}

	if req.Mode == "storyboard" {
		if d, ok := directive.ParseShotList(full); ok {
			stream.SendJSON(models.ShotListFrame{ShotList: *d})
		}
		if d, ok := directive.ParseEntitySuggestions(full); ok {
			stream.SendJSON(models.EntitySuggestionFrame{EntitySuggestion: *d})
		}
	}

	if d, ok := directive.ParseGeneration(full); ok && !consultant {
		stream.SendJSON(models.GenerationFrame{Generation: models.GenerationStatus{
			Status: models.StatusGenerating,
			Model:  d.Model,
			Params: d.Params,
		}})

		images := generation.CollectImages(req.Messages)
		status := h.dispatcher.Dispatch(r.Context(), d, images, r.Header)
		stream.SendJSON(models.GenerationFrame{Generation: status})
	}

	stream.SendDone()
}

// saveSkill persists an LLM-authored skill. Failures are logged and the
// skillCreation frame still goes out, same stance as the usage recorder.
func (h *ChatHandler) saveSkill(ctx context.Context, userID uuid.UUID, d *models.SkillCreationDirective) {
	if userID == uuid.Nil {
		return
	}

	shortcut := strings.TrimPrefix(d.Shortcut, "/")
	if shortcut == "" {
		shortcut = slugify(d.Name)
	}

	skill := &models.Skill{
		UserID:      userID,
		Name:        d.Name,
		Shortcut:    shortcut,
		Description: d.Description,
		Category:    d.Category,
		Icon:        d.Icon,
		Content:     d.Content,
		Tags:        d.Tags,
		Examples:    d.Examples,
	}
	if err := h.skills.Create(ctx, skill); err != nil {
		log.Printf("failed to save created skill %q for user %s: %v", d.Name, userID, err)
	}
}

// composeInstruction assembles the system instruction from the catalog, the
// user's referenced skills (built-ins first, then Postgres ones), and the
// mode the request selects.
func (h *ChatHandler) composeInstruction(ctx context.Context, userID uuid.UUID, req *models.ChatRequest, consultant bool) string {
	var skills []models.Skill
	var userShortcuts []string
	for _, shortcut := range req.ReferencedSkills {
		shortcut = strings.TrimPrefix(shortcut, "/")
		if builtin, ok := prompt.FindBuiltin(shortcut); ok {
			skills = append(skills, builtin)
			continue
		}
		userShortcuts = append(userShortcuts, shortcut)
	}

	if len(userShortcuts) > 0 && userID != uuid.Nil {
		userSkills, err := h.skills.GetByShortcuts(ctx, userID, userShortcuts)
		if err != nil {
			log.Printf("failed to resolve skills %v for user %s: %v", userShortcuts, userID, err)
		}
		for _, s := range userSkills {
			skills = append(skills, *s)
		}
	}

	in := prompt.ComposeInput{
		Catalog:       catalog.Models(),
		Skills:        skills,
		SkillsContext: req.SkillsContext,
		Mode:          prompt.ModeGeneration,
	}

	switch {
	case consultant:
		in.Mode = prompt.ModeConsultant
	case req.Mode == "storyboard":
		in.Mode = prompt.ModeStoryboard
	case req.SelectedGenerationModelID != "":
		if m, ok := catalog.Find(req.SelectedGenerationModelID); ok {
			in.Mode = prompt.ModePreselected
			in.SelectedModel = m
		}
	}

	return prompt.SystemInstruction(in)
}
