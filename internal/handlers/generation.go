package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"skinny-studio-backend/internal/catalog"
	"skinny-studio-backend/internal/middleware"
	"skinny-studio-backend/internal/models"
	"skinny-studio-backend/internal/services"
)

type creditStore interface {
	DeductCredits(ctx context.Context, userID uuid.UUID, amountCents int64) (int64, bool, error)
}

type generationStore interface {
	Create(ctx context.Context, g *models.Generation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Generation, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Generation, error)
	MarkSucceeded(ctx context.Context, id uuid.UUID, outputURLs []string) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
}

type imageGenerator interface {
	GenerateImage(ctx context.Context, apiKey, modelName, promptText string, images []models.ImageInput) ([]string, error)
}

type predictionClient interface {
	CreatePrediction(ctx context.Context, model string, input map[string]interface{}, wait bool) (*services.Prediction, error)
}

type pollEnqueuer interface {
	Enqueue(ctx context.Context, job models.PollJob) error
}

type GenerationHandler struct {
	credits     creditStore
	generations generationStore
	gemini      imageGenerator
	replicate   predictionClient
	pollQueue   pollEnqueuer
	platformKey string
}

func NewGenerationHandler(credits creditStore, generations generationStore, gemini imageGenerator, replicate predictionClient, pollQueue pollEnqueuer, platformKey string) *GenerationHandler {
	return &GenerationHandler{
		credits:     credits,
		generations: generations,
		gemini:      gemini,
		replicate:   replicate,
		pollQueue:   pollQueue,
		platformKey: platformKey,
	}
}

// Generate is POST /api/v1/generations. The chat dispatcher and the UI both
// call it; responses always use the GenerateResponse shape so callers have
// one decoding path.
func (h *GenerationHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.GenerateResponse{Error: "Invalid request body", Code: "VALIDATION_ERROR"})
		return
	}

	if strings.TrimSpace(req.Prompt) == "" {
		writeJSON(w, http.StatusBadRequest, models.GenerateResponse{Error: "Prompt is required", Code: "VALIDATION_ERROR"})
		return
	}

	spec, ok := catalog.Find(req.Model)
	if !ok {
		writeJSON(w, http.StatusBadRequest, models.GenerateResponse{Error: "Unknown generation model: " + req.Model, Code: "MODEL_NOT_FOUND"})
		return
	}

	if req.Duration != nil {
		if err := spec.ValidateDuration(*req.Duration); err != nil {
			writeJSON(w, http.StatusBadRequest, models.GenerateResponse{Error: err.Error(), Code: "VALIDATION_ERROR"})
			return
		}
	}

	userID := middleware.GetUserID(r.Context())

	// Credits are charged when the job is accepted, not refunded on
	// provider failure.
	price := spec.CallPriceCents(req.Duration)
	available, charged, err := h.credits.DeductCredits(r.Context(), userID, price)
	if err != nil {
		log.Printf("credit check failed for user %s: %v", userID, err)
		writeJSON(w, http.StatusInternalServerError, models.GenerateResponse{Error: "Could not verify credit balance", Code: "INTERNAL_ERROR"})
		return
	}
	if !charged {
		required := price
		writeJSON(w, http.StatusPaymentRequired, models.GenerateResponse{
			Error:     "Not enough credits for this generation.",
			Code:      "INSUFFICIENT_CREDITS",
			Required:  &required,
			Available: &available,
		})
		return
	}

	switch spec.Provider {
	case catalog.ProviderGemini:
		h.generateGemini(w, r, spec, &req, userID, price)
	default:
		h.generateReplicate(w, r, spec, &req, userID, price)
	}
}

func (h *GenerationHandler) generateGemini(w http.ResponseWriter, r *http.Request, spec *catalog.ModelSpec, req *models.GenerateRequest, userID uuid.UUID, price int64) {
	urls, err := h.gemini.GenerateImage(r.Context(), h.platformKey, spec.ProviderName, req.Prompt, req.Images)
	if err != nil {
		code, message := services.ClassifyAIError(err)
		log.Printf("gemini generation failed for user %s: %v", userID, err)
		writeJSON(w, http.StatusBadGateway, models.GenerateResponse{Error: message, Code: code})
		return
	}

	g := &models.Generation{
		UserID:     userID,
		Model:      spec.ID,
		Prompt:     req.Prompt,
		Status:     models.GenerationSucceeded,
		OutputURLs: urls,
		CostCents:  price,
	}
	if err := h.generations.Create(r.Context(), g); err != nil {
		log.Printf("failed to persist generation for user %s: %v", userID, err)
	}

	writeJSON(w, http.StatusOK, models.GenerateResponse{
		Success:      true,
		ImageURL:     urls[0],
		OutputURLs:   urls,
		GenerationID: g.ID.String(),
	})
}

func (h *GenerationHandler) generateReplicate(w http.ResponseWriter, r *http.Request, spec *catalog.ModelSpec, req *models.GenerateRequest, userID uuid.UUID, price int64) {
	input := buildReplicateInput(spec, req)

	pred, err := h.replicate.CreatePrediction(r.Context(), spec.ProviderName, input, !req.NoWait)
	if err != nil {
		code, message := replicateErrorCode(err)
		log.Printf("replicate prediction failed for user %s: %v", userID, err)
		writeJSON(w, http.StatusBadGateway, models.GenerateResponse{Error: message, Code: code})
		return
	}

	switch {
	case pred.Status == "succeeded":
		urls := pred.OutputURLs()
		if len(urls) == 0 {
			writeJSON(w, http.StatusBadGateway, models.GenerateResponse{Error: "Model finished without output", Code: "AI_ERROR"})
			return
		}
		g := &models.Generation{
			UserID:     userID,
			Model:      spec.ID,
			Prompt:     req.Prompt,
			Status:     models.GenerationSucceeded,
			ProviderID: &pred.ID,
			OutputURLs: urls,
			CostCents:  price,
		}
		if err := h.generations.Create(r.Context(), g); err != nil {
			log.Printf("failed to persist generation for user %s: %v", userID, err)
		}
		writeJSON(w, http.StatusOK, models.GenerateResponse{
			Success:      true,
			ImageURL:     urls[0],
			OutputURLs:   urls,
			GenerationID: g.ID.String(),
		})

	case pred.Terminal():
		msg := "Generation failed."
		if pred.Error != nil && *pred.Error != "" {
			msg = *pred.Error
		}
		writeJSON(w, http.StatusBadGateway, models.GenerateResponse{Error: msg, Code: "AI_ERROR"})

	default:
		// Still running on the provider; hand off to the poll worker.
		g := &models.Generation{
			UserID:     userID,
			Model:      spec.ID,
			Prompt:     req.Prompt,
			Status:     models.GenerationPending,
			ProviderID: &pred.ID,
			CostCents:  price,
		}
		if err := h.generations.Create(r.Context(), g); err != nil {
			log.Printf("failed to persist pending generation for user %s: %v", userID, err)
			writeJSON(w, http.StatusInternalServerError, models.GenerateResponse{Error: "Could not track the generation", Code: "INTERNAL_ERROR"})
			return
		}
		if err := h.pollQueue.Enqueue(r.Context(), models.PollJob{
			GenerationID: g.ID,
			UserID:       userID,
			PredictionID: pred.ID,
		}); err != nil {
			log.Printf("failed to enqueue poll job for generation %s: %v", g.ID, err)
		}
		writeJSON(w, http.StatusOK, models.GenerateResponse{
			Pending:      true,
			GenerationID: g.ID.String(),
		})
	}
}

// Get is GET /api/v1/generations/{id}, the polling endpoint clients hit
// after a pending hand-off.
func (h *GenerationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid generation ID", r))
		return
	}

	g, err := h.generations.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Generation not found", r))
		return
	}

	if g.UserID != middleware.GetUserID(r.Context()) {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
		return
	}

	writeJSON(w, http.StatusOK, g)
}

// List is GET /api/v1/generations: the user's history, newest first.
func (h *GenerationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	limit := queryInt(r, "limit", 20, 100)
	offset := queryInt(r, "offset", 0, 0)

	gens, err := h.generations.ListByUser(r.Context(), userID, limit, offset)
	if err != nil {
		log.Printf("failed to list generations for user %s: %v", userID, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load generations", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"generations": gens})
}

// queryInt reads a non-negative integer query param, falling back to def and
// clamping to max when max is positive.
func queryInt(r *http.Request, name string, def, max int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	if max > 0 && n > max {
		return max
	}
	return n
}

// buildReplicateInput maps the request onto the provider's input schema.
// Image purposes bind to model-specific keys; unknown params pass through.
func buildReplicateInput(spec *catalog.ModelSpec, req *models.GenerateRequest) map[string]interface{} {
	input := map[string]interface{}{"prompt": req.Prompt}
	for k, v := range req.Params {
		input[k] = v
	}
	if req.Duration != nil {
		input["duration"] = *req.Duration
	}
	if req.Resolution != "" {
		input["resolution"] = req.Resolution
	}
	if spec.Sequential && req.SequentialImageGeneration != "" {
		input["sequential_image_generation"] = req.SequentialImageGeneration
		if req.MaxImages > 0 {
			input["max_images"] = req.MaxImages
		}
	}

	var references []string
	for _, img := range req.Images {
		url := img.URL
		if url == "" {
			continue
		}
		switch img.Purpose {
		case models.PurposeStartingFrame:
			if spec.StartEnd {
				input["start_image"] = url
			}
		case models.PurposeLastFrame:
			if spec.StartEnd {
				input["end_image"] = url
			}
		case models.PurposeEditTarget:
			input["image"] = url
		default:
			references = append(references, url)
		}
	}
	if len(references) > 0 && spec.ImageInput {
		input["image_input"] = references
	}

	return input
}

func replicateErrorCode(err error) (code, message string) {
	switch err.(type) {
	case *services.UnauthorizedError:
		return "INVALID_API_KEY", "The generation provider rejected the API token."
	case *services.RateLimitError:
		return "RATE_LIMITED", "The generation provider is rate limiting requests. Try again shortly."
	case *services.NotFoundError:
		return "MODEL_NOT_FOUND", "The selected generation model is not available."
	default:
		return "AI_ERROR", err.Error()
	}
}
