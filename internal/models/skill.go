package models

import (
	"time"

	"github.com/google/uuid"
)

// Skill is a reusable prompt fragment the user can activate or reference in
// chat. Built-in skills ship with the process; user skills live in Postgres.
type Skill struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Name        string    `json:"name"`
	Shortcut    string    `json:"shortcut"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Icon        string    `json:"icon,omitempty"`
	Content     string    `json:"content"`
	Tags        []string  `json:"tags,omitempty"`
	Examples    []string  `json:"examples,omitempty"`
	IsBuiltin   bool      `json:"is_builtin"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CreateSkillRequest struct {
	Name        string   `json:"name"`
	Shortcut    string   `json:"shortcut"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Icon        string   `json:"icon"`
	Content     string   `json:"content"`
	Tags        []string `json:"tags"`
	Examples    []string `json:"examples"`
}

type UpdateSkillRequest struct {
	Name        *string   `json:"name"`
	Shortcut    *string   `json:"shortcut"`
	Description *string   `json:"description"`
	Category    *string   `json:"category"`
	Icon        *string   `json:"icon"`
	Content     *string   `json:"content"`
	Tags        *[]string `json:"tags"`
	Examples    *[]string `json:"examples"`
}
