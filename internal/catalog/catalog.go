// Package catalog holds the immutable table of generation models the
// orchestrator can recommend and dispatch to. Loaded once at process start;
// nothing mutates it at runtime (admin-side editing is out of scope).
package catalog

import "fmt"

// ConsultantModelID is the pseudo-model for consultant mode. Selecting it
// suppresses generation dispatch entirely, even when the LLM emits a
// syntactically valid generate directive.
const ConsultantModelID = "creative-consultant"

// Providers a ModelSpec can dispatch to.
const (
	ProviderReplicate = "replicate"
	ProviderGemini    = "gemini"
)

type ParamType string

const (
	ParamString  ParamType = "string"
	ParamInteger ParamType = "integer"
	ParamNumber  ParamType = "number"
	ParamBoolean ParamType = "boolean"
	ParamEnum    ParamType = "enum"
)

// ParamSpec describes one accepted generation parameter.
type ParamSpec struct {
	Name    string
	Type    ParamType
	Default interface{}
	Options []string // enum values
	Min     *float64
	Max     *float64
}

// ModelSpec describes one generation model: where it runs, what media it
// produces, what it costs per call, and which parameters it accepts.
type ModelSpec struct {
	ID          string
	Label       string
	Provider    string
	Media       string // "image" | "video"
	Description string

	// PriceCents is the per-call price charged against the user's credit
	// balance. Video models multiply by duration seconds.
	PriceCents   int64
	PricePerSec  bool
	Params       []ParamSpec
	ImageInput   bool
	StartEnd     bool // accepts starting_frame / last_frame images
	EditTarget   bool // accepts an edit_target image
	Sequential   bool // supports sequentialImageGeneration / maxImages
	MaxImages    int
	Durations    []int    // allowed video durations, seconds
	Resolutions  []string // allowed video resolutions
	ProviderName string   // provider-side model path, e.g. "black-forest-labs/flux-2-pro"
}

func fptr(f float64) *float64 { return &f }

var models = []ModelSpec{
	{
		ID:           "flux-2-pro",
		Label:        "FLUX 2 Pro",
		Provider:     ProviderReplicate,
		Media:        "image",
		Description:  "High-fidelity text-to-image. Strong at photorealism and typography.",
		PriceCents:   5,
		ImageInput:   true,
		ProviderName: "black-forest-labs/flux-2-pro",
		Params: []ParamSpec{
			{Name: "aspect_ratio", Type: ParamEnum, Default: "1:1", Options: []string{"1:1", "16:9", "9:16", "4:3", "3:4"}},
			{Name: "output_format", Type: ParamEnum, Default: "webp", Options: []string{"webp", "jpg", "png"}},
			{Name: "guidance", Type: ParamNumber, Default: 3.0, Min: fptr(1), Max: fptr(10)},
			{Name: "seed", Type: ParamInteger},
		},
	},
	{
		ID:           "seedream-4",
		Label:        "Seedream 4",
		Provider:     ProviderReplicate,
		Media:        "image",
		Description:  "Fast image model with sequential multi-image generation for story beats.",
		PriceCents:   3,
		ImageInput:   true,
		Sequential:   true,
		MaxImages:    8,
		ProviderName: "bytedance/seedream-4",
		Params: []ParamSpec{
			{Name: "size", Type: ParamEnum, Default: "2K", Options: []string{"1K", "2K", "4K"}},
			{Name: "aspect_ratio", Type: ParamEnum, Default: "16:9", Options: []string{"1:1", "16:9", "9:16", "4:3"}},
		},
	},
	{
		ID:           "gemini-flash-image",
		Label:        "Gemini Flash Image",
		Provider:     ProviderGemini,
		Media:        "image",
		Description:  "Conversational image generation and editing. Best for targeted edits of an attached image.",
		PriceCents:   4,
		ImageInput:   true,
		EditTarget:   true,
		ProviderName: "gemini-2.5-flash-image",
		Params: []ParamSpec{
			{Name: "aspect_ratio", Type: ParamEnum, Default: "1:1", Options: []string{"1:1", "16:9", "9:16"}},
		},
	},
	{
		ID:           "kling-v2",
		Label:        "Kling v2",
		Provider:     ProviderReplicate,
		Media:        "video",
		Description:  "Image-to-video and text-to-video. Supports a starting frame and a last frame.",
		PriceCents:   12,
		PricePerSec:  true,
		ImageInput:   true,
		StartEnd:     true,
		Durations:    []int{5, 10},
		Resolutions:  []string{"720p", "1080p"},
		ProviderName: "kwaivgi/kling-v2.1",
		Params: []ParamSpec{
			{Name: "cfg_scale", Type: ParamNumber, Default: 0.5, Min: fptr(0), Max: fptr(1)},
			{Name: "negative_prompt", Type: ParamString},
		},
	},
	{
		ID:           "veo-3-fast",
		Label:        "Veo 3 Fast",
		Provider:     ProviderReplicate,
		Media:        "video",
		Description:  "Text-to-video with native audio. No frame conditioning.",
		PriceCents:   25,
		PricePerSec:  true,
		Durations:    []int{4, 6, 8},
		Resolutions:  []string{"720p", "1080p"},
		ProviderName: "google/veo-3-fast",
		Params: []ParamSpec{
			{Name: "negative_prompt", Type: ParamString},
			{Name: "seed", Type: ParamInteger},
		},
	},
}

// Models returns the full catalog in declaration order.
func Models() []ModelSpec {
	return models
}

// Find looks a generation model up by id.
func Find(id string) (*ModelSpec, bool) {
	for i := range models {
		if models[i].ID == id {
			return &models[i], true
		}
	}
	return nil, false
}

// CallPriceCents returns the credit price of one call to the model,
// accounting for per-second video pricing.
func (m *ModelSpec) CallPriceCents(durationSec *int) int64 {
	if m.PricePerSec {
		secs := 5
		if len(m.Durations) > 0 {
			secs = m.Durations[0]
		}
		if durationSec != nil && *durationSec > 0 {
			secs = *durationSec
		}
		return m.PriceCents * int64(secs)
	}
	return m.PriceCents
}

// TokenPricing is the orchestrator-LLM price per million tokens, in cents.
type TokenPricing struct {
	InputCentsPerMTok  float64
	OutputCentsPerMTok float64
}

var chatPricing = map[string]TokenPricing{
	"gemini-2.5-flash": {InputCentsPerMTok: 30, OutputCentsPerMTok: 250},
	"gemini-2.5-pro":   {InputCentsPerMTok: 125, OutputCentsPerMTok: 1000},
	"gemini-2.0-flash": {InputCentsPerMTok: 10, OutputCentsPerMTok: 40},
}

var defaultChatPricing = TokenPricing{InputCentsPerMTok: 30, OutputCentsPerMTok: 250}

// ChatCostCents estimates the cost of one chat turn in cents from token
// counts and the per-model pricing table. Unknown models use the default
// flash pricing rather than pricing the turn at zero.
func ChatCostCents(model string, promptTokens, responseTokens int) float64 {
	p, ok := chatPricing[model]
	if !ok {
		p = defaultChatPricing
	}
	return float64(promptTokens)*p.InputCentsPerMTok/1_000_000.0 +
		float64(responseTokens)*p.OutputCentsPerMTok/1_000_000.0
}

// ValidateDuration checks a requested video duration against the model's
// allowed values.
func (m *ModelSpec) ValidateDuration(d int) error {
	if len(m.Durations) == 0 {
		return fmt.Errorf("model %s does not accept a duration", m.ID)
	}
	for _, allowed := range m.Durations {
		if d == allowed {
			return nil
		}
	}
	return fmt.Errorf("model %s does not support duration %ds", m.ID, d)
}
