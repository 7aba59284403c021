package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"skinny-studio-backend/internal/middleware"
	"skinny-studio-backend/internal/models"
	"skinny-studio-backend/internal/services"
)

type fakeCredits struct {
	balance int64
}

func (f *fakeCredits) DeductCredits(ctx context.Context, userID uuid.UUID, amountCents int64) (int64, bool, error) {
	if f.balance < amountCents {
		return f.balance, false, nil
	}
	f.balance -= amountCents
	return f.balance, true, nil
}

type fakeGenStore struct {
	created    *models.Generation
	rows       []*models.Generation
	listLimit  int
	listOffset int
}

func (f *fakeGenStore) Create(ctx context.Context, g *models.Generation) error {
	g.ID = uuid.New()
	f.created = g
	return nil
}
func (f *fakeGenStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Generation, error) {
	return f.created, nil
}
func (f *fakeGenStore) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Generation, error) {
	f.listLimit = limit
	f.listOffset = offset
	return f.rows, nil
}
func (f *fakeGenStore) MarkSucceeded(ctx context.Context, id uuid.UUID, outputURLs []string) error {
	return nil
}
func (f *fakeGenStore) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	return nil
}

type fakeImageGen struct {
	urls []string
	err  error
}

func (f *fakeImageGen) GenerateImage(ctx context.Context, apiKey, modelName, promptText string, images []models.ImageInput) ([]string, error) {
	return f.urls, f.err
}

type fakePredictions struct {
	pred  *services.Prediction
	err   error
	input map[string]interface{}
}

func (f *fakePredictions) CreatePrediction(ctx context.Context, model string, input map[string]interface{}, wait bool) (*services.Prediction, error) {
	f.input = input
	return f.pred, f.err
}

type fakeEnqueuer struct {
	jobs []models.PollJob
}

func (f *fakeEnqueuer) Enqueue(ctx context.Context, job models.PollJob) error {
	f.jobs = append(f.jobs, job)
	return nil
}

func postGenerate(t *testing.T, h *GenerationHandler, req models.GenerateRequest) (*httptest.ResponseRecorder, models.GenerateResponse) {
	t.Helper()

	body, _ := json.Marshal(req)
	r := httptest.NewRequest(http.MethodPost, "/api/v1/generations", bytes.NewReader(body))
	r = r.WithContext(context.WithValue(r.Context(), middleware.UserIDKey, uuid.New()))
	w := httptest.NewRecorder()

	h.Generate(w, r)

	var resp models.GenerateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("undecodable response: %s", w.Body.String())
	}
	return w, resp
}

func TestGenerateInsufficientCredits(t *testing.T) {
	h := NewGenerationHandler(&fakeCredits{balance: 2}, &fakeGenStore{}, &fakeImageGen{}, &fakePredictions{}, &fakeEnqueuer{}, "key")

	w, resp := postGenerate(t, h, models.GenerateRequest{Model: "flux-2-pro", Prompt: "a cat"})

	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402", w.Code)
	}
	if resp.Code != "INSUFFICIENT_CREDITS" {
		t.Errorf("code = %q", resp.Code)
	}
	if resp.Required == nil || *resp.Required != 5 {
		t.Errorf("required = %v, want 5", resp.Required)
	}
	if resp.Available == nil || *resp.Available != 2 {
		t.Errorf("available = %v, want 2", resp.Available)
	}
}

func TestGenerateVideoPriceScalesWithDuration(t *testing.T) {
	credits := &fakeCredits{balance: 1000}
	preds := &fakePredictions{pred: &services.Prediction{ID: "p1", Status: "processing"}}
	h := NewGenerationHandler(credits, &fakeGenStore{}, &fakeImageGen{}, preds, &fakeEnqueuer{}, "key")

	duration := 10
	postGenerate(t, h, models.GenerateRequest{Model: "kling-v2", Prompt: "waves", Duration: &duration})

	// kling-v2 is 12¢/s
	if credits.balance != 1000-120 {
		t.Errorf("balance after charge = %d, want %d", credits.balance, 1000-120)
	}
}

func TestGenerateGeminiSuccess(t *testing.T) {
	store := &fakeGenStore{}
	h := NewGenerationHandler(&fakeCredits{balance: 100}, store, &fakeImageGen{urls: []string{"data:image/png;base64,AAAA"}}, &fakePredictions{}, &fakeEnqueuer{}, "key")

	w, resp := postGenerate(t, h, models.GenerateRequest{Model: "gemini-flash-image", Prompt: "edit this"})

	if w.Code != http.StatusOK || !resp.Success {
		t.Fatalf("unexpected response %d: %+v", w.Code, resp)
	}
	if resp.ImageURL != "data:image/png;base64,AAAA" || len(resp.OutputURLs) != 1 {
		t.Errorf("output mismatch: %+v", resp)
	}
	if store.created == nil || store.created.Status != models.GenerationSucceeded {
		t.Errorf("generation row not persisted as succeeded: %+v", store.created)
	}
}

func TestGenerateReplicatePendingEnqueuesPollJob(t *testing.T) {
	store := &fakeGenStore{}
	queue := &fakeEnqueuer{}
	preds := &fakePredictions{pred: &services.Prediction{ID: "pred-7", Status: "starting"}}
	h := NewGenerationHandler(&fakeCredits{balance: 100}, store, &fakeImageGen{}, preds, queue, "key")

	w, resp := postGenerate(t, h, models.GenerateRequest{Model: "flux-2-pro", Prompt: "a cat", NoWait: true})

	if w.Code != http.StatusOK || !resp.Pending {
		t.Fatalf("unexpected response %d: %+v", w.Code, resp)
	}
	if resp.GenerationID == "" {
		t.Error("pending response missing generationId")
	}
	if len(queue.jobs) != 1 || queue.jobs[0].PredictionID != "pred-7" {
		t.Errorf("poll job not enqueued: %+v", queue.jobs)
	}
	if store.created.Status != models.GenerationPending {
		t.Errorf("row status = %q", store.created.Status)
	}
}

func TestGenerateReplicateSyncSuccess(t *testing.T) {
	output, _ := json.Marshal([]string{"https://cdn/1.png", "https://cdn/2.png"})
	preds := &fakePredictions{pred: &services.Prediction{ID: "p2", Status: "succeeded", Output: output}}
	h := NewGenerationHandler(&fakeCredits{balance: 100}, &fakeGenStore{}, &fakeImageGen{}, preds, &fakeEnqueuer{}, "key")

	w, resp := postGenerate(t, h, models.GenerateRequest{Model: "seedream-4", Prompt: "beats", SequentialImageGeneration: "auto", MaxImages: 2})

	if w.Code != http.StatusOK || !resp.Success {
		t.Fatalf("unexpected response %d: %+v", w.Code, resp)
	}
	if resp.ImageURL != "https://cdn/1.png" || len(resp.OutputURLs) != 2 {
		t.Errorf("output mismatch: %+v", resp)
	}
	if preds.input["sequential_image_generation"] != "auto" {
		t.Errorf("sequential flag not passed: %v", preds.input)
	}
}

func TestGenerateImagePurposeBinding(t *testing.T) {
	preds := &fakePredictions{pred: &services.Prediction{ID: "p3", Status: "starting"}}
	h := NewGenerationHandler(&fakeCredits{balance: 1000}, &fakeGenStore{}, &fakeImageGen{}, preds, &fakeEnqueuer{}, "key")

	postGenerate(t, h, models.GenerateRequest{
		Model:  "kling-v2",
		Prompt: "waves",
		Images: []models.ImageInput{
			{URL: "https://x/start.png", Purpose: "starting_frame"},
			{URL: "https://x/end.png", Purpose: "last_frame"},
		},
	})

	if preds.input["start_image"] != "https://x/start.png" {
		t.Errorf("start_image = %v", preds.input["start_image"])
	}
	if preds.input["end_image"] != "https://x/end.png" {
		t.Errorf("end_image = %v", preds.input["end_image"])
	}
}

func TestListGenerationsPagination(t *testing.T) {
	store := &fakeGenStore{rows: []*models.Generation{{Model: "flux-2-pro"}}}
	h := NewGenerationHandler(&fakeCredits{balance: 100}, store, &fakeImageGen{}, &fakePredictions{}, &fakeEnqueuer{}, "key")

	list := func(url string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, url, nil)
		r = r.WithContext(context.WithValue(r.Context(), middleware.UserIDKey, uuid.New()))
		w := httptest.NewRecorder()
		h.List(w, r)
		return w
	}

	if w := list("/api/v1/generations"); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if store.listLimit != 20 || store.listOffset != 0 {
		t.Errorf("defaults = limit %d offset %d, want 20/0", store.listLimit, store.listOffset)
	}

	list("/api/v1/generations?limit=500&offset=40")
	if store.listLimit != 100 {
		t.Errorf("limit = %d, want clamped to 100", store.listLimit)
	}
	if store.listOffset != 40 {
		t.Errorf("offset = %d, want 40", store.listOffset)
	}
}

func TestGenerateUnknownModel(t *testing.T) {
	h := NewGenerationHandler(&fakeCredits{balance: 100}, &fakeGenStore{}, &fakeImageGen{}, &fakePredictions{}, &fakeEnqueuer{}, "key")

	w, resp := postGenerate(t, h, models.GenerateRequest{Model: "dall-e-9", Prompt: "x"})

	if w.Code != http.StatusBadRequest || resp.Code != "MODEL_NOT_FOUND" {
		t.Errorf("got %d / %q", w.Code, resp.Code)
	}
}

func TestGenerateInvalidDuration(t *testing.T) {
	h := NewGenerationHandler(&fakeCredits{balance: 1000}, &fakeGenStore{}, &fakeImageGen{}, &fakePredictions{}, &fakeEnqueuer{}, "key")

	duration := 7
	w, resp := postGenerate(t, h, models.GenerateRequest{Model: "kling-v2", Prompt: "waves", Duration: &duration})

	if w.Code != http.StatusBadRequest || resp.Code != "VALIDATION_ERROR" {
		t.Errorf("got %d / %q", w.Code, resp.Code)
	}
}
