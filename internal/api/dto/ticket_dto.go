package dto

import (
	"time"

	"github.com/cliphub/support-service/internal/domain"
)

// CreateTicketRequest payload. Body seeds the first thread message.
type CreateTicketRequest struct {
	Subject     string              `json:"subject" validate:"required"`
	Category    string              `json:"category"`
	Priority    string              `json:"priority" validate:"omitempty,oneof=low normal high"`
	Body        string              `json:"body" validate:"required"`
	Attachments []AttachmentPayload `json:"attachments" validate:"dive"`
}

// CreateMessageRequest payload.
type CreateMessageRequest struct {
	Body        string              `json:"body" validate:"required"`
	Attachments []AttachmentPayload `json:"attachments" validate:"dive"`
}

// RateTicketRequest payload.
type RateTicketRequest struct {
	Rating int `json:"rating" validate:"required,min=1,max=5"`
}

// AttachmentPayload carries attachment metadata in both directions.
type AttachmentPayload struct {
	Name       string `json:"name" validate:"required"`
	MimeType   string `json:"mime_type"`
	StorageKey string `json:"storage_key" validate:"required"`
}

// TicketSummary response.
type TicketSummary struct {
	ID           string                `json:"id"`
	Subject      string                `json:"subject"`
	Category     string                `json:"category"`
	Status       domain.TicketStatus   `json:"status"`
	Priority     domain.TicketPriority `json:"priority"`
	UserName     string                `json:"user_name"`
	UserRole     domain.RequesterRole  `json:"user_role"`
	AssignedTo   *string               `json:"assigned_to"`
	Tags         []string              `json:"tags"`
	Satisfaction *int                  `json:"satisfaction"`
	Revision     int64                 `json:"revision"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides the full ticket with its thread.
type TicketDetailResponse struct {
	TicketSummary
	UserEmail  string            `json:"user_email"`
	ResolvedAt *time.Time        `json:"resolved_at"`
	Messages   []MessageResponse `json:"messages"`
}

// AdminTicketDetailResponse adds the admin-only fields.
type AdminTicketDetailResponse struct {
	TicketDetailResponse
	InternalNotes []string `json:"internal_notes"`
}

// MessageResponse represents a thread message.
type MessageResponse struct {
	ID          string                `json:"id"`
	Sender      domain.MessageSender  `json:"sender"`
	SenderName  string                `json:"sender_name"`
	Body        string                `json:"body"`
	Attachments []AttachmentPayload   `json:"attachments"`
	Status      domain.DeliveryStatus `json:"status"`
	Read        bool                  `json:"read"`
	CreatedAt   time.Time             `json:"created_at"`
}
