// Package prompt assembles the system instruction for the chat orchestrator.
// Composition is pure string concatenation: identical inputs produce a
// byte-identical prompt, which keeps provider-side prompt caching and tests
// stable.
package prompt

import (
	"fmt"
	"strings"

	"skinny-studio-backend/internal/catalog"
	"skinny-studio-backend/internal/models"
)

// Mode selects the per-mode appendix of the system instruction.
type Mode int

const (
	// ModeGeneration is the default chat mode: recommend a model, then emit
	// a generate directive once the user confirms.
	ModeGeneration Mode = iota
	// ModeConsultant forbids generation directives entirely.
	ModeConsultant
	// ModePreselected skips model-recommendation dialogue because the user
	// already picked a generation model in the UI.
	ModePreselected
	// ModeStoryboard enables shot-list and entity-suggestion directives.
	ModeStoryboard
)

// ComposeInput carries everything the composer needs. Skill content is passed
// through verbatim; the composer does no sanitization beyond what the LLM
// provider itself imposes.
type ComposeInput struct {
	Catalog       []catalog.ModelSpec
	Skills        []models.Skill
	SkillsContext string
	Mode          Mode
	SelectedModel *catalog.ModelSpec
}

// SystemInstruction builds the full system instruction string.
func SystemInstruction(in ComposeInput) string {
	var b strings.Builder

	// Layer 1: role
	b.WriteString("You are the creative director of Skinny Studio, an AI image and video production tool. ")
	b.WriteString("You help the user refine their visual ideas, pick the right generation model, and write strong prompts. ")
	b.WriteString("Be concrete and visual; avoid filler.\n\n")

	// Layer 2: directive contract
	b.WriteString("When the user is ready to generate, emit exactly one fenced code block tagged `generate` ")
	b.WriteString("containing a single JSON object with `model`, `prompt`, and optional `params`, `duration`, ")
	b.WriteString("`resolution`, `sequentialImageGeneration`, `maxImages`. Example:\n")
	b.WriteString("```generate\n{\"model\": \"flux-2-pro\", \"prompt\": \"...\", \"params\": {\"aspect_ratio\": \"16:9\"}}\n```\n")
	b.WriteString("When the user asks to save a reusable style or workflow, emit a fenced block tagged `create-skill` ")
	b.WriteString("with `name`, `shortcut`, `description`, `category`, `content`, and optional `icon`, `tags`, `examples`.\n\n")

	// Layer 3: model catalog
	b.WriteString("Available generation models:\n")
	for _, m := range in.Catalog {
		writeModelSpec(&b, m)
	}
	b.WriteString("\n")

	// Layer 4: skills
	if len(in.Skills) > 0 {
		b.WriteString("Active skills (apply these instructions when relevant):\n")
		for _, s := range in.Skills {
			b.WriteString(fmt.Sprintf("--- SKILL: %s (/%s) ---\n", s.Name, s.Shortcut))
			b.WriteString(s.Content)
			b.WriteString("\n--- END SKILL ---\n")
		}
		b.WriteString("\n")
	}
	if in.SkillsContext != "" {
		b.WriteString("Additional skill context from the user:\n")
		b.WriteString(in.SkillsContext)
		b.WriteString("\n\n")
	}

	// Layer 5: attachment semantics
	b.WriteString("Attached images are annotated with a purpose: reference (style/subject guidance), ")
	b.WriteString("starting_frame (first frame of a video), edit_target (image to modify), ")
	b.WriteString("last_frame (final frame of a video). Respect the user's purpose assignments when planning.\n\n")

	// Layer 6: mode appendix
	switch in.Mode {
	case ModeConsultant:
		b.WriteString("CONSULTANT MODE: You are advising only. Do NOT emit `generate` blocks under any circumstances; ")
		b.WriteString("discuss approaches, models, and prompt craft instead.\n")
	case ModePreselected:
		if in.SelectedModel != nil {
			b.WriteString(fmt.Sprintf("The user has already selected %s (%s). Skip model recommendation; ", in.SelectedModel.Label, in.SelectedModel.ID))
			b.WriteString(fmt.Sprintf("every `generate` block must use \"model\": %q.\n", in.SelectedModel.ID))
		}
	case ModeStoryboard:
		b.WriteString("STORYBOARD MODE: You may additionally emit a fenced `shot-list` block ")
		b.WriteString("({\"title\", \"shots\": [{\"title\", \"description\", \"mediaType\", \"prompt\"}]}) when planning a sequence, ")
		b.WriteString("and a fenced `entity-suggestion` block ({\"entities\": [{\"name\", \"type\", \"description\"}]}) ")
		b.WriteString("when you notice recurring characters, locations, or props worth tracking.\n")
	}

	return b.String()
}

func writeModelSpec(b *strings.Builder, m catalog.ModelSpec) {
	b.WriteString(fmt.Sprintf("- %s (%s, %s): %s", m.ID, m.Label, m.Media, m.Description))
	if m.Sequential {
		b.WriteString(fmt.Sprintf(" Supports sequential generation up to %d images.", m.MaxImages))
	}
	if len(m.Durations) > 0 {
		b.WriteString(fmt.Sprintf(" Durations: %s seconds.", joinInts(m.Durations)))
	}
	if len(m.Resolutions) > 0 {
		b.WriteString(fmt.Sprintf(" Resolutions: %s.", strings.Join(m.Resolutions, ", ")))
	}
	b.WriteString("\n")

	for _, p := range m.Params {
		b.WriteString(fmt.Sprintf("    param %s (%s", p.Name, p.Type))
		if p.Default != nil {
			b.WriteString(fmt.Sprintf(", default %v", p.Default))
		}
		if len(p.Options) > 0 {
			b.WriteString(fmt.Sprintf(", one of %s", strings.Join(p.Options, "|")))
		}
		if p.Min != nil && p.Max != nil {
			b.WriteString(fmt.Sprintf(", range %v-%v", *p.Min, *p.Max))
		}
		b.WriteString(")\n")
	}
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprintf("%d", x)
	}
	return strings.Join(parts, "/")
}
