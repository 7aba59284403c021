package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"skinny-studio-backend/internal/middleware"
	"skinny-studio-backend/internal/models"
	"skinny-studio-backend/internal/prompt"
	"skinny-studio-backend/internal/repository"
)

type SkillHandler struct {
	skillRepo *repository.SkillRepo
}

func NewSkillHandler(skillRepo *repository.SkillRepo) *SkillHandler {
	return &SkillHandler{skillRepo: skillRepo}
}

// List returns the built-in skills followed by the user's saved ones.
func (h *SkillHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	userSkills, err := h.skillRepo.ListByUser(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load skills", r))
		return
	}

	skills := make([]models.Skill, 0, len(prompt.BuiltinSkills)+len(userSkills))
	skills = append(skills, prompt.BuiltinSkills...)
	for _, s := range userSkills {
		skills = append(skills, *s)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"skills": skills})
}

func (h *SkillHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSkillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	fieldErrors := make(map[string]string)
	if strings.TrimSpace(req.Name) == "" {
		fieldErrors["name"] = "Name is required"
	}
	if strings.TrimSpace(req.Content) == "" {
		fieldErrors["content"] = "Content is required"
	}
	if len(fieldErrors) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fieldErrors, r))
		return
	}

	if req.Category == "" {
		req.Category = "custom"
	}
	if req.Shortcut == "" {
		req.Shortcut = slugify(req.Name)
	}

	skill := &models.Skill{
		UserID:      middleware.GetUserID(r.Context()),
		Name:        req.Name,
		Shortcut:    req.Shortcut,
		Description: req.Description,
		Category:    req.Category,
		Icon:        req.Icon,
		Content:     req.Content,
		Tags:        req.Tags,
		Examples:    req.Examples,
	}

	if err := h.skillRepo.Create(r.Context(), skill); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create skill", r))
		return
	}

	writeJSON(w, http.StatusCreated, skill)
}

func (h *SkillHandler) Get(w http.ResponseWriter, r *http.Request) {
	skill, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, skill)
}

func (h *SkillHandler) Update(w http.ResponseWriter, r *http.Request) {
	skill, ok := h.loadOwned(w, r)
	if !ok {
		return
	}

	var req models.UpdateSkillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if req.Name != nil {
		skill.Name = *req.Name
	}
	if req.Shortcut != nil {
		skill.Shortcut = *req.Shortcut
	}
	if req.Description != nil {
		skill.Description = *req.Description
	}
	if req.Category != nil {
		skill.Category = *req.Category
	}
	if req.Icon != nil {
		skill.Icon = *req.Icon
	}
	if req.Content != nil {
		skill.Content = *req.Content
	}
	if req.Tags != nil {
		skill.Tags = *req.Tags
	}
	if req.Examples != nil {
		skill.Examples = *req.Examples
	}

	if err := h.skillRepo.Update(r.Context(), skill); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to update skill", r))
		return
	}

	writeJSON(w, http.StatusOK, skill)
}

func (h *SkillHandler) Delete(w http.ResponseWriter, r *http.Request) {
	skill, ok := h.loadOwned(w, r)
	if !ok {
		return
	}

	if err := h.skillRepo.Delete(r.Context(), skill.ID); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to delete skill", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Skill deleted"})
}

func (h *SkillHandler) loadOwned(w http.ResponseWriter, r *http.Request) (*models.Skill, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid skill ID", r))
		return nil, false
	}

	skill, err := h.skillRepo.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Skill not found", r))
		return nil, false
	}

	if skill.UserID != middleware.GetUserID(r.Context()) {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
		return nil, false
	}

	return skill, true
}

func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ' || r == '-' || r == '_':
			return '-'
		}
		return -1
	}, slug)
	return strings.Trim(slug, "-")
}
