package dto

import (
	"time"

	"github.com/cliphub/support-service/internal/domain"
)

// RegisterUserRequest payload.
type RegisterUserRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=clipper advertiser"`
}

// LoginRequest payload, shared by user and agent login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// PasswordResetRequest payload.
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// PasswordResetConfirmRequest payload.
type PasswordResetConfirmRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// ChangePasswordRequest payload.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// UserResponse represents a marketplace account.
type UserResponse struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Email     string               `json:"email"`
	Role      domain.RequesterRole `json:"role"`
	Status    domain.UserStatus    `json:"status"`
	CreatedAt time.Time            `json:"created_at"`
}

// AuthResponse carries a bearer token and the authenticated subject.
type AuthResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      *UserResponse  `json:"user,omitempty"`
	Agent     *AgentResponse `json:"agent,omitempty"`
}
