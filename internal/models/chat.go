package models

// Attachment purposes. The purpose is chosen by the user in the UI and is
// threaded through to the generation call unmodified; it decides which
// downstream parameter the image binds to.
const (
	PurposeReference     = "reference"
	PurposeStartingFrame = "starting_frame"
	PurposeEditTarget    = "edit_target"
	PurposeLastFrame     = "last_frame"
)

// ChatAttachment is an image the user attached to a chat message.
type ChatAttachment struct {
	Type     string `json:"type"` // "image" or "reference"
	URL      string `json:"url"`
	Name     string `json:"name"`
	Base64   string `json:"base64,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Purpose  string `json:"purpose,omitempty"` // see Purpose* constants; empty means reference
}

// ChatMessage is a single turn in the conversation. Constructed per-request
// from the client payload; this subsystem does not persist it.
type ChatMessage struct {
	Role        string           `json:"role"` // "user" | "assistant" | "system"
	Content     string           `json:"content"`
	Attachments []ChatAttachment `json:"attachments,omitempty"`
}

// ChatRequest is the payload POSTed to the streaming chat endpoint.
type ChatRequest struct {
	Messages                  []ChatMessage `json:"messages"`
	APIKey                    string        `json:"apiKey,omitempty"`
	ModelID                   string        `json:"modelId,omitempty"`
	SkillsContext             string        `json:"skillsContext,omitempty"`
	ReferencedSkills          []string      `json:"referencedSkills,omitempty"`
	SelectedGenerationModelID string        `json:"selectedGenerationModelId,omitempty"`
	Mode                      string        `json:"mode,omitempty"` // "" | "storyboard"
}

// SSE frame payloads. Each frame on the wire is `data: <JSON>\n\n` and the
// terminal frame is `data: [DONE]\n\n`.

// ContentFrame carries one text delta from the LLM stream.
type ContentFrame struct {
	Content string `json:"content"`
}

// GenerationResult is the payload of a "complete" generation status.
type GenerationResult struct {
	ImageURL   string   `json:"imageUrl"`
	OutputURLs []string `json:"outputUrls"`
	Prompt     string   `json:"prompt"`
}

// Generation status values: planning -> generating -> (complete | error).
const (
	StatusPlanning   = "planning"
	StatusGenerating = "generating"
	StatusComplete   = "complete"
	StatusError      = "error"
)

// GenerationStatus is the tagged union streamed to the client while a
// generation directive is being acted on.
type GenerationStatus struct {
	Status       string                 `json:"status"`
	Model        string                 `json:"model,omitempty"`
	Params       map[string]interface{} `json:"params,omitempty"`
	Result       *GenerationResult      `json:"result,omitempty"`
	GenerationID string                 `json:"generationId,omitempty"`
	Error        string                 `json:"error,omitempty"`
	Code         string                 `json:"code,omitempty"`
	Required     *int64                 `json:"required,omitempty"`
	Available    *int64                 `json:"available,omitempty"`
}

type GenerationFrame struct {
	Generation GenerationStatus `json:"generation"`
}

type SkillCreationFrame struct {
	SkillCreation SkillCreationDirective `json:"skillCreation"`
}

type ShotListFrame struct {
	ShotList ShotListDirective `json:"shotList"`
}

type EntitySuggestionFrame struct {
	EntitySuggestion EntitySuggestionDirective `json:"entitySuggestion"`
}

// StreamErrorFrame is the terminal error frame for upstream LLM failures.
type StreamErrorFrame struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
