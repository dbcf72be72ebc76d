package dto

import "time"

// SaveTemplateRequest payload. An empty id creates, a known id replaces.
type SaveTemplateRequest struct {
	ID        string   `json:"id"`
	Name      string   `json:"name" validate:"required"`
	Body      string   `json:"body" validate:"required"`
	Category  string   `json:"category"`
	Shortcuts []string `json:"shortcuts"`
}

// RenderTemplateRequest payload.
type RenderTemplateRequest struct {
	Values map[string]string `json:"values"`
}

// TemplateResponse represents a canned response.
type TemplateResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Body      string    `json:"body"`
	Category  string    `json:"category"`
	Shortcuts []string  `json:"shortcuts"`
	Variables []string  `json:"variables"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RenderedTemplateResponse carries a rendered body.
type RenderedTemplateResponse struct {
	Body string `json:"body"`
}
