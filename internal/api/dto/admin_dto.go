package dto

import (
	"time"

	"github.com/cliphub/support-service/internal/domain"
)

// ReplyRequest payload for support replies.
type ReplyRequest struct {
	Body        string              `json:"body" validate:"required"`
	Attachments []AttachmentPayload `json:"attachments" validate:"dive"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status  string `json:"status" validate:"required,oneof=open pending resolved closed"`
	Comment string `json:"comment"`
}

// UpdatePriorityRequest payload.
type UpdatePriorityRequest struct {
	Priority string `json:"priority" validate:"required,oneof=low normal high"`
}

// AssignRequest payload. An empty agent name clears the assignment.
type AssignRequest struct {
	Agent string `json:"agent"`
}

// TagRequest payload.
type TagRequest struct {
	Tag string `json:"tag" validate:"required"`
}

// NoteRequest payload.
type NoteRequest struct {
	Note string `json:"note" validate:"required"`
}

// BulkStatusRequest payload.
type BulkStatusRequest struct {
	TicketIDs []string `json:"ticket_ids" validate:"required,min=1"`
	Status    string   `json:"status" validate:"required,oneof=open pending resolved closed"`
	Comment   string   `json:"comment"`
}

// BulkAssignRequest payload.
type BulkAssignRequest struct {
	TicketIDs []string `json:"ticket_ids" validate:"required,min=1"`
	Agent     string   `json:"agent"`
}

// TicketHistoryResponse is one audit trail entry.
type TicketHistoryResponse struct {
	ID            string                  `json:"id"`
	ChangeType    domain.TicketChangeType `json:"change_type"`
	ChangedByType domain.SubjectType      `json:"changed_by_type"`
	ChangedByID   *string                 `json:"changed_by_id"`
	OldValue      map[string]any          `json:"old_value,omitempty"`
	NewValue      map[string]any          `json:"new_value,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
}
