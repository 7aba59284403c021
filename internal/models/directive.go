package models

// GenerationDirective is the payload of a fenced ```generate block emitted by
// the orchestrator LLM. Model and Prompt are required; a directive missing
// either is treated as "no directive found", not as an error.
type GenerationDirective struct {
	Model                     string                 `json:"model"`
	Prompt                    string                 `json:"prompt"`
	Params                    map[string]interface{} `json:"params"`
	Duration                  *int                   `json:"duration,omitempty"`
	Resolution                string                 `json:"resolution,omitempty"`
	SequentialImageGeneration string                 `json:"sequentialImageGeneration,omitempty"`
	MaxImages                 int                    `json:"maxImages,omitempty"`
}

// SkillCreationDirective is the payload of a fenced ```create-skill block.
type SkillCreationDirective struct {
	Name        string   `json:"name"`
	Shortcut    string   `json:"shortcut"`
	Description string   `json:"description"`
	Category    string   `json:"category"` // defaults to "custom"
	Icon        string   `json:"icon,omitempty"`
	Content     string   `json:"content"`
	Tags        []string `json:"tags,omitempty"`
	Examples    []string `json:"examples,omitempty"`
}

// ShotItem is one planned shot in a storyboard shot list.
type ShotItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	MediaType   string `json:"mediaType"` // defaults to "image"
	Prompt      string `json:"prompt"`
	Duration    *int   `json:"duration,omitempty"`
}

// ShotListDirective is the payload of a fenced ```shot-list block
// (storyboard mode only).
type ShotListDirective struct {
	Title string     `json:"title,omitempty"`
	Shots []ShotItem `json:"shots"`
}

// EntitySuggestion is one suggested storyboard entity (character, location,
// prop) the LLM proposes tracking.
type EntitySuggestion struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // defaults to "character"
	Description string `json:"description,omitempty"`
}

// EntitySuggestionDirective is the payload of a fenced ```entity-suggestion
// block (storyboard mode only).
type EntitySuggestionDirective struct {
	Entities []EntitySuggestion `json:"entities"`
}
