package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"skinny-studio-backend/internal/middleware"
	"skinny-studio-backend/internal/models"
	"skinny-studio-backend/internal/services"
)

// fakeStreamer replays scripted chunks through onChunk, mimicking the
// provider stream.
type fakeStreamer struct {
	chunks []string
	err    error
	usage  services.UsageInfo
}

func (f *fakeStreamer) ResolveKey(userKey string) (string, bool) {
	if userKey != "" {
		return userKey, false
	}
	return "platform-key", true
}

func (f *fakeStreamer) DefaultModel() string { return "gemini-2.5-flash" }

func (f *fakeStreamer) StreamChat(ctx context.Context, apiKey, modelID, systemInstruction string, messages []models.ChatMessage, onChunk func(string) error) (services.UsageInfo, error) {
	for _, c := range f.chunks {
		if err := onChunk(c); err != nil {
			return f.usage, err
		}
	}
	return f.usage, f.err
}

type fakeDispatcher struct {
	calls  int
	lastD  *models.GenerationDirective
	images []models.ImageInput
	status models.GenerationStatus
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, d *models.GenerationDirective, images []models.ImageInput, inbound http.Header) models.GenerationStatus {
	f.calls++
	f.lastD = d
	f.images = images
	return f.status
}

type noSkills struct{}

func (noSkills) GetByShortcuts(ctx context.Context, userID uuid.UUID, shortcuts []string) ([]*models.Skill, error) {
	return nil, nil
}

func (noSkills) Create(ctx context.Context, s *models.Skill) error { return nil }

// skillSink records skills the handler persists off the stream.
type skillSink struct {
	saved []*models.Skill
	err   error
}

func (s *skillSink) GetByShortcuts(ctx context.Context, userID uuid.UUID, shortcuts []string) ([]*models.Skill, error) {
	return nil, nil
}

func (s *skillSink) Create(ctx context.Context, sk *models.Skill) error {
	s.saved = append(s.saved, sk)
	return s.err
}

type noUsage struct{ records int }

func (n *noUsage) Record(userID uuid.UUID, model string, promptTokens, responseTokens, totalTokens int, platformKey bool) {
	n.records++
}

func runChat(t *testing.T, streamer chatStreamer, dispatcher generationDispatcher, req models.ChatRequest) []string {
	t.Helper()

	h := NewChatHandler(streamer, noSkills{}, dispatcher, &noUsage{})

	body, _ := json.Marshal(req)
	r := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(body))
	r = r.WithContext(context.WithValue(r.Context(), middleware.UserIDKey, uuid.New()))
	w := httptest.NewRecorder()

	h.Stream(w, r)

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q, body: %s", ct, w.Body.String())
	}
	return parseFrames(t, w.Body.String())
}

func parseFrames(t *testing.T, body string) []string {
	t.Helper()
	var frames []string
	for _, block := range strings.Split(body, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		if !strings.HasPrefix(block, "data: ") {
			t.Fatalf("malformed SSE block: %q", block)
		}
		frames = append(frames, strings.TrimPrefix(block, "data: "))
	}
	return frames
}

func userMessages(content string) []models.ChatMessage {
	return []models.ChatMessage{{Role: "user", Content: content}}
}

const generateReply = "Sure! ```generate\n{\"model\":\"flux-2-pro\",\"prompt\":\"a cat\"}\n```"

func TestChatStreamDispatchesCompletedGeneration(t *testing.T) {
	streamer := &fakeStreamer{
		chunks: []string{"Sure! ```gene", "rate\n{\"model\":\"flux-2-pro\",", "\"prompt\":\"a cat\"}\n```"},
		usage:  services.UsageInfo{PromptTokens: 100, ResponseTokens: 20, TotalTokens: 120},
	}
	dispatcher := &fakeDispatcher{status: models.GenerationStatus{
		Status: models.StatusComplete,
		Model:  "flux-2-pro",
		Result: &models.GenerationResult{
			ImageURL:   "https://cdn/cat.png",
			OutputURLs: []string{"https://cdn/cat.png"},
			Prompt:     "a cat",
		},
	}}

	frames := runChat(t, streamer, dispatcher, models.ChatRequest{Messages: userMessages("draw a cat")})

	if frames[len(frames)-1] != "[DONE]" {
		t.Fatalf("stream did not end with [DONE]: %v", frames)
	}

	// Content frames reconstruct the reply exactly.
	var text strings.Builder
	var statuses []string
	for _, f := range frames[:len(frames)-1] {
		var content models.ContentFrame
		var gen models.GenerationFrame
		if err := json.Unmarshal([]byte(f), &gen); err == nil && gen.Generation.Status != "" {
			statuses = append(statuses, gen.Generation.Status)
			continue
		}
		if err := json.Unmarshal([]byte(f), &content); err == nil {
			text.WriteString(content.Content)
		}
	}
	if text.String() != generateReply {
		t.Errorf("reconstructed text = %q", text.String())
	}

	want := []string{models.StatusPlanning, models.StatusGenerating, models.StatusComplete}
	if strings.Join(statuses, ",") != strings.Join(want, ",") {
		t.Errorf("status sequence = %v, want %v", statuses, want)
	}
	if dispatcher.calls != 1 {
		t.Errorf("dispatcher called %d times", dispatcher.calls)
	}
	if dispatcher.lastD.Prompt != "a cat" {
		t.Errorf("directive prompt = %q", dispatcher.lastD.Prompt)
	}
}

func TestChatStreamPendingHandoff(t *testing.T) {
	streamer := &fakeStreamer{chunks: []string{generateReply}}
	dispatcher := &fakeDispatcher{status: models.GenerationStatus{
		Status:       models.StatusGenerating,
		Model:        "flux-2-pro",
		GenerationID: "g1",
	}}

	frames := runChat(t, streamer, dispatcher, models.ChatRequest{Messages: userMessages("draw a cat")})

	sawPendingID := false
	for _, f := range frames {
		var gen models.GenerationFrame
		if json.Unmarshal([]byte(f), &gen) != nil {
			continue
		}
		if gen.Generation.Status == models.StatusComplete {
			t.Error("pending hand-off must not emit a complete frame")
		}
		if gen.Generation.GenerationID == "g1" {
			sawPendingID = true
		}
	}
	if !sawPendingID {
		t.Error("no generating frame carried generationId g1")
	}
}

func TestChatStreamDispatchErrorStillTerminates(t *testing.T) {
	streamer := &fakeStreamer{chunks: []string{generateReply}}
	dispatcher := &fakeDispatcher{status: models.GenerationStatus{
		Status: models.StatusError,
		Error:  "Generation service is unreachable. Please try again.",
		Code:   "GENERATION_UNAVAILABLE",
	}}

	frames := runChat(t, streamer, dispatcher, models.ChatRequest{Messages: userMessages("draw a cat")})

	if frames[len(frames)-1] != "[DONE]" {
		t.Fatalf("stream did not end with [DONE]")
	}

	errorFrames := 0
	for _, f := range frames {
		var gen models.GenerationFrame
		if json.Unmarshal([]byte(f), &gen) == nil && gen.Generation.Status == models.StatusError {
			errorFrames++
			if gen.Generation.Error == "" {
				t.Error("error frame has empty error string")
			}
		}
	}
	if errorFrames != 1 {
		t.Errorf("expected exactly one error frame, got %d", errorFrames)
	}
}

func TestChatStreamConsultantModeSuppressesDispatch(t *testing.T) {
	streamer := &fakeStreamer{chunks: []string{generateReply}}
	dispatcher := &fakeDispatcher{}

	frames := runChat(t, streamer, dispatcher, models.ChatRequest{
		Messages:                  userMessages("draw a cat"),
		SelectedGenerationModelID: "creative-consultant",
	})

	if dispatcher.calls != 0 {
		t.Fatalf("dispatcher invoked %d times in consultant mode", dispatcher.calls)
	}
	for _, f := range frames {
		var gen models.GenerationFrame
		if json.Unmarshal([]byte(f), &gen) == nil && gen.Generation.Status == models.StatusPlanning {
			t.Error("planning frame emitted in consultant mode")
		}
	}
}

func TestChatStreamForwardsNewestImagePerPurpose(t *testing.T) {
	streamer := &fakeStreamer{chunks: []string{generateReply}}
	dispatcher := &fakeDispatcher{status: models.GenerationStatus{Status: models.StatusError, Error: "x"}}

	messages := []models.ChatMessage{
		{Role: "user", Content: "start here", Attachments: []models.ChatAttachment{
			{Type: "image", URL: "a", Purpose: "starting_frame"},
		}},
		{Role: "assistant", Content: "got it"},
		{Role: "user", Content: "use this one instead", Attachments: []models.ChatAttachment{
			{Type: "image", URL: "b", Purpose: "starting_frame"},
		}},
	}

	runChat(t, streamer, dispatcher, models.ChatRequest{Messages: messages})

	if len(dispatcher.images) != 1 {
		t.Fatalf("expected 1 image, got %v", dispatcher.images)
	}
	if dispatcher.images[0].URL != "b" {
		t.Errorf("starting_frame url = %q, want b", dispatcher.images[0].URL)
	}
}

func TestChatStreamProviderErrorClassified(t *testing.T) {
	streamer := &fakeStreamer{
		chunks: []string{"Working on"},
		err:    errors.New("googleapi: Error 429: quota exceeded"),
	}

	frames := runChat(t, streamer, &fakeDispatcher{}, models.ChatRequest{Messages: userMessages("hi")})

	if frames[len(frames)-1] != "[DONE]" {
		t.Fatalf("stream did not end with [DONE]")
	}

	var errFrame models.StreamErrorFrame
	if err := json.Unmarshal([]byte(frames[len(frames)-2]), &errFrame); err != nil {
		t.Fatalf("frame before [DONE] is not an error frame: %v", frames)
	}
	if errFrame.Code != services.CodeRateLimited {
		t.Errorf("code = %q, want %q", errFrame.Code, services.CodeRateLimited)
	}
}

const skillReply = "Saved it. ```create-skill\n{\"name\":\"Neon Noir\",\"content\":\"Lean on neon rim lighting.\"}\n```"

func runChatWithSkills(t *testing.T, skills skillResolver, userID uuid.UUID) []string {
	t.Helper()

	h := NewChatHandler(&fakeStreamer{chunks: []string{skillReply}}, skills, &fakeDispatcher{}, &noUsage{})

	body, _ := json.Marshal(models.ChatRequest{Messages: userMessages("remember this style")})
	r := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(body))
	r = r.WithContext(context.WithValue(r.Context(), middleware.UserIDKey, userID))
	w := httptest.NewRecorder()

	h.Stream(w, r)
	return parseFrames(t, w.Body.String())
}

func TestChatStreamPersistsCreatedSkill(t *testing.T) {
	sink := &skillSink{}
	userID := uuid.New()

	frames := runChatWithSkills(t, sink, userID)

	if len(sink.saved) != 1 {
		t.Fatalf("expected 1 saved skill, got %d", len(sink.saved))
	}
	saved := sink.saved[0]
	if saved.Name != "Neon Noir" || saved.UserID != userID {
		t.Errorf("saved skill = %+v", saved)
	}
	if saved.Shortcut != "neon-noir" {
		t.Errorf("shortcut = %q, want slug of the name", saved.Shortcut)
	}
	if saved.Category != "custom" {
		t.Errorf("category = %q, want custom default", saved.Category)
	}

	sawFrame := false
	for _, f := range frames {
		var frame models.SkillCreationFrame
		if json.Unmarshal([]byte(f), &frame) == nil && frame.SkillCreation.Name == "Neon Noir" {
			sawFrame = true
		}
	}
	if !sawFrame {
		t.Error("skillCreation frame not emitted")
	}
}

func TestChatStreamSkillSaveFailureStillEmitsFrame(t *testing.T) {
	sink := &skillSink{err: errors.New("db down")}

	frames := runChatWithSkills(t, sink, uuid.New())

	if frames[len(frames)-1] != "[DONE]" {
		t.Fatalf("stream did not end with [DONE]: %v", frames)
	}
	sawFrame := false
	for _, f := range frames {
		var frame models.SkillCreationFrame
		if json.Unmarshal([]byte(f), &frame) == nil && frame.SkillCreation.Name != "" {
			sawFrame = true
		}
	}
	if !sawFrame {
		t.Error("persistence failure must not suppress the skillCreation frame")
	}
}

func TestChatStreamRejectsEmptyConversation(t *testing.T) {
	h := NewChatHandler(&fakeStreamer{}, noSkills{}, &fakeDispatcher{}, &noUsage{})

	body, _ := json.Marshal(models.ChatRequest{})
	r := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.Stream(w, r)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
