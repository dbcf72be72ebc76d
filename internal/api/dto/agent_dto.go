package dto

import (
	"time"

	"github.com/cliphub/support-service/internal/domain"
)

// CreateAgentRequest payload.
type CreateAgentRequest struct {
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	Role      string `json:"role" validate:"required,oneof=AGENT ADMIN"`
	Specialty string `json:"specialty"`
}

// UpdateAgentRequest payload.
type UpdateAgentRequest struct {
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
	Role      string `json:"role" validate:"omitempty,oneof=AGENT ADMIN"`
	Active    bool   `json:"active"`
}

// AgentResponse represents a roster entry.
type AgentResponse struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Email     string           `json:"email"`
	Role      domain.AgentRole `json:"role"`
	Specialty string           `json:"specialty,omitempty"`
	Active    bool             `json:"active"`
	CreatedAt time.Time        `json:"created_at"`
}
