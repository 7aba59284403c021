package prompt

import (
	"strings"
	"testing"

	"skinny-studio-backend/internal/catalog"
	"skinny-studio-backend/internal/models"
)

func TestSystemInstruction_Deterministic(t *testing.T) {
	in := ComposeInput{
		Catalog:       catalog.Models(),
		Skills:        BuiltinSkills,
		SkillsContext: "The user prefers muted palettes.",
		Mode:          ModeGeneration,
	}

	first := SystemInstruction(in)
	second := SystemInstruction(in)

	if first != second {
		t.Error("Expected byte-identical prompts for identical inputs")
	}
	if first == "" {
		t.Fatal("Expected non-empty prompt")
	}
}

func TestSystemInstruction_CatalogSerialization(t *testing.T) {
	out := SystemInstruction(ComposeInput{Catalog: catalog.Models()})

	for _, m := range catalog.Models() {
		if !strings.Contains(out, m.ID) {
			t.Errorf("Expected prompt to mention model %q", m.ID)
		}
	}
	if !strings.Contains(out, "aspect_ratio") {
		t.Error("Expected parameter specs to be serialized")
	}
	if !strings.Contains(out, "one of") {
		t.Error("Expected enum options to be serialized")
	}
}

func TestSystemInstruction_ConsultantModeForbidsDirectives(t *testing.T) {
	out := SystemInstruction(ComposeInput{Catalog: catalog.Models(), Mode: ModeConsultant})

	if !strings.Contains(out, "CONSULTANT MODE") {
		t.Error("Expected consultant appendix")
	}
	if !strings.Contains(out, "Do NOT emit `generate` blocks") {
		t.Error("Expected explicit directive prohibition")
	}
}

func TestSystemInstruction_PreselectedModelAppendix(t *testing.T) {
	spec, ok := catalog.Find("flux-2-pro")
	if !ok {
		t.Fatal("flux-2-pro missing from catalog")
	}

	out := SystemInstruction(ComposeInput{Catalog: catalog.Models(), Mode: ModePreselected, SelectedModel: spec})

	if !strings.Contains(out, "Skip model recommendation") {
		t.Error("Expected preselected-model appendix")
	}
	if !strings.Contains(out, `"model": "flux-2-pro"`) {
		t.Error("Expected the selected model id to be pinned in the appendix")
	}
}

func TestSystemInstruction_StoryboardModeAppendix(t *testing.T) {
	out := SystemInstruction(ComposeInput{Catalog: catalog.Models(), Mode: ModeStoryboard})

	if !strings.Contains(out, "shot-list") || !strings.Contains(out, "entity-suggestion") {
		t.Error("Expected storyboard directives to be documented")
	}
}

func TestSystemInstruction_SkillsRenderedVerbatim(t *testing.T) {
	payload := "Always render teapots | with {braces} and ```fences``` untouched"
	out := SystemInstruction(ComposeInput{
		Catalog: catalog.Models(),
		Skills: []models.Skill{{
			Name:     "Odd skill",
			Shortcut: "odd",
			Content:  payload,
		}},
	})

	if !strings.Contains(out, payload) {
		t.Error("Expected skill content to be passed through verbatim")
	}
	if !strings.Contains(out, "SKILL: Odd skill (/odd)") {
		t.Error("Expected labeled skill section")
	}
}
