package prompt

import "skinny-studio-backend/internal/models"

// BuiltinSkills ship with the process and are always offered alongside the
// user's saved skills. Content is passed to the composer verbatim.
var BuiltinSkills = []models.Skill{
	{
		Name:        "Cinematic look",
		Shortcut:    "cinematic",
		Description: "Film-style composition and grading",
		Category:    "style",
		Content: "Favor anamorphic framing, shallow depth of field, motivated practical lighting, " +
			"and a graded filmic palette (lifted blacks, gentle halation). Mention lens and stock when useful.",
		IsBuiltin: true,
	},
	{
		Name:        "Product shot",
		Shortcut:    "product",
		Description: "Clean e-commerce product photography",
		Category:    "style",
		Content: "Center the product on a seamless background, soft gradient key light with a subtle rim, " +
			"true-to-life color, no props unless asked. Default aspect ratio 1:1.",
		IsBuiltin: true,
	},
	{
		Name:        "Storyboard beats",
		Shortcut:    "beats",
		Description: "Break a scene into generable beats",
		Category:    "workflow",
		Content: "When the user describes a scene, decompose it into 3-6 distinct visual beats before " +
			"proposing any generation; each beat gets its own prompt candidate.",
		IsBuiltin: true,
	},
}

// FindBuiltin looks a built-in skill up by shortcut (without the leading /).
func FindBuiltin(shortcut string) (models.Skill, bool) {
	for _, s := range BuiltinSkills {
		if s.Shortcut == shortcut {
			return s, true
		}
	}
	return models.Skill{}, false
}
