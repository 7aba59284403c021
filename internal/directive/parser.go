// Package directive extracts structured JSON directives from fenced code
// blocks inside the orchestrator LLM's streamed output. Parsing is re-run
// against a growing buffer, so a block is only considered once both its
// opening and closing triple-backtick fences have arrived; re-parsing a
// longer buffer containing the same closed fence yields the same directive.
package directive

import (
	"encoding/json"
	"log"
	"strings"

	"skinny-studio-backend/internal/models"
)

// Known fence tags.
const (
	TagGenerate         = "generate"
	TagCreateSkill      = "create-skill"
	TagShotList         = "shot-list"
	TagEntitySuggestion = "entity-suggestion"
)

// extractBlock returns the body of the first complete fenced block tagged
// with tag, and whether one exists. A block whose closing fence has not
// arrived yet is reported as absent, never as an error.
func extractBlock(text, tag string) (string, bool) {
	marker := "```" + tag
	search := text

	for {
		start := strings.Index(search, marker)
		if start < 0 {
			return "", false
		}

		rest := search[start+len(marker):]
		nl := strings.IndexByte(rest, '\n')
		if nl < 0 {
			// Opening fence line is still mid-stream.
			return "", false
		}

		// Reject partial tag matches like ```generate-plan.
		if strings.TrimSpace(rest[:nl]) != "" {
			search = rest
			continue
		}

		body := rest[nl+1:]
		end := strings.Index(body, "```")
		if end < 0 {
			return "", false
		}
		return strings.TrimSpace(body[:end]), true
	}
}

// HasFence reports whether a complete fenced block for tag exists in text.
// Used by the relay's mid-stream planning check.
func HasFence(text, tag string) bool {
	_, ok := extractBlock(text, tag)
	return ok
}

// ParseGeneration extracts the first complete ```generate block. Missing
// required fields or malformed JSON void the directive: the caller sees
// "no directive found", never an error.
func ParseGeneration(text string) (*models.GenerationDirective, bool) {
	body, ok := extractBlock(text, TagGenerate)
	if !ok {
		return nil, false
	}

	var d models.GenerationDirective
	if err := json.Unmarshal([]byte(body), &d); err != nil {
		log.Printf("directive: discarding malformed generate block: %v", err)
		return nil, false
	}

	if strings.TrimSpace(d.Model) == "" || strings.TrimSpace(d.Prompt) == "" {
		log.Printf("directive: generate block missing model or prompt, ignoring")
		return nil, false
	}

	if d.Params == nil {
		d.Params = map[string]interface{}{}
	}
	return &d, true
}

// ParseSkillCreation extracts the first complete ```create-skill block.
func ParseSkillCreation(text string) (*models.SkillCreationDirective, bool) {
	body, ok := extractBlock(text, TagCreateSkill)
	if !ok {
		return nil, false
	}

	var d models.SkillCreationDirective
	if err := json.Unmarshal([]byte(body), &d); err != nil {
		log.Printf("directive: discarding malformed create-skill block: %v", err)
		return nil, false
	}

	if strings.TrimSpace(d.Name) == "" || strings.TrimSpace(d.Content) == "" {
		log.Printf("directive: create-skill block missing name or content, ignoring")
		return nil, false
	}

	if d.Category == "" {
		d.Category = "custom"
	}
	return &d, true
}

// ParseShotList extracts the first complete ```shot-list block
// (storyboard mode).
func ParseShotList(text string) (*models.ShotListDirective, bool) {
	body, ok := extractBlock(text, TagShotList)
	if !ok {
		return nil, false
	}

	var d models.ShotListDirective
	if err := json.Unmarshal([]byte(body), &d); err != nil {
		log.Printf("directive: discarding malformed shot-list block: %v", err)
		return nil, false
	}

	if len(d.Shots) == 0 {
		return nil, false
	}
	for i := range d.Shots {
		if d.Shots[i].MediaType == "" {
			d.Shots[i].MediaType = "image"
		}
	}
	return &d, true
}

// ParseEntitySuggestions extracts the first complete ```entity-suggestion
// block (storyboard mode).
func ParseEntitySuggestions(text string) (*models.EntitySuggestionDirective, bool) {
	body, ok := extractBlock(text, TagEntitySuggestion)
	if !ok {
		return nil, false
	}

	var d models.EntitySuggestionDirective
	if err := json.Unmarshal([]byte(body), &d); err != nil {
		log.Printf("directive: discarding malformed entity-suggestion block: %v", err)
		return nil, false
	}

	if len(d.Entities) == 0 {
		return nil, false
	}
	for i := range d.Entities {
		if d.Entities[i].Type == "" {
			d.Entities[i].Type = "character"
		}
	}
	return &d, true
}
