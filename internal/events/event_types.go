package events

import (
	"time"

	"github.com/cliphub/support-service/internal/domain"
)

// EventType enumerates supported change-feed event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventTicketTagsChanged     EventType = "ticket_tags_changed"
	EventTicketNoteAdded       EventType = "ticket_note_added"
	EventTicketMessageAdded    EventType = "ticket_message_added"
	EventTicketRated           EventType = "ticket_rated"
	EventTicketDeleted         EventType = "ticket_deleted"
	EventTemplateSaved         EventType = "template_saved"
	EventTemplateDeleted       EventType = "template_deleted"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type    domain.SubjectType `json:"type"`
	UserID  *string            `json:"user_id,omitempty"`
	AgentID *string            `json:"agent_id,omitempty"`
}

// Event represents a domain event emitted on the change feed.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Subject       string                `json:"subject"`
	Category      string                `json:"category"`
	Priority      domain.TicketPriority `json:"priority"`
	RequesterRole domain.RequesterRole  `json:"requester_role"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Comment   string              `json:"comment,omitempty"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssignedTo *string `json:"assigned_to,omitempty"`
}

// TicketTagsChangedPayload payload.
type TicketTagsChangedPayload struct {
	Tags []string `json:"tags"`
}

// TicketMessageAddedPayload payload.
type TicketMessageAddedPayload struct {
	MessageID   string               `json:"message_id"`
	Sender      domain.MessageSender `json:"sender"`
	BodyPreview string               `json:"body_preview"`
}

// TicketRatedPayload payload.
type TicketRatedPayload struct {
	Satisfaction int `json:"satisfaction"`
}

// TemplateChangedPayload payload. Template events carry no ticket id.
type TemplateChangedPayload struct {
	TemplateID string `json:"template_id"`
	Name       string `json:"name,omitempty"`
}
