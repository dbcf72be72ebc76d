package domain

import "time"

// TicketStatus enumerates lifecycle states for support tickets.
type TicketStatus string

const (
	TicketStatusOpen     TicketStatus = "open"
	TicketStatusPending  TicketStatus = "pending"
	TicketStatusResolved TicketStatus = "resolved"
	TicketStatusClosed   TicketStatus = "closed"
)

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityNormal TicketPriority = "normal"
	TicketPriorityHigh   TicketPriority = "high"
)

// RequesterRole identifies which side of the marketplace opened the ticket.
type RequesterRole string

const (
	RequesterRoleClipper    RequesterRole = "clipper"
	RequesterRoleAdvertiser RequesterRole = "advertiser"
)

// Ticket is the aggregate for a support conversation between a requester
// (clipper or advertiser) and the support team.
type Ticket struct {
	ID             string
	Subject        string
	Category       string
	Status         TicketStatus
	Priority       TicketPriority
	RequesterID    string
	RequesterName  string
	RequesterEmail string
	RequesterRole  RequesterRole
	AssignedTo     *string
	Tags           []string
	InternalNotes  []string
	Satisfaction   *int
	Revision       int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ResolvedAt     *time.Time

	// Messages is the chronological thread, populated on hydration.
	Messages []Message
}

// IsTerminal reports whether the ticket sits in a terminal state.
func (t *Ticket) IsTerminal() bool {
	return t.Status == TicketStatusResolved || t.Status == TicketStatusClosed
}

// HasTag reports whether the ticket carries the given tag.
func (t *Ticket) HasTag(tag string) bool {
	for _, existing := range t.Tags {
		if existing == tag {
			return true
		}
	}
	return false
}

// InteractionCount is the number of messages in the thread.
func (t *Ticket) InteractionCount() int {
	return len(t.Messages)
}

// ResponseTime returns the minutes between the first requester message and
// the first support reply, or nil when support has not replied yet.
func (t *Ticket) ResponseTime() *int {
	var firstUser, firstSupport *time.Time
	for i := range t.Messages {
		msg := &t.Messages[i]
		switch msg.Sender {
		case SenderUser:
			if firstUser == nil {
				firstUser = &msg.CreatedAt
			}
		case SenderSupport:
			if firstSupport == nil {
				firstSupport = &msg.CreatedAt
			}
		}
	}
	if firstUser == nil || firstSupport == nil {
		return nil
	}
	minutes := int(firstSupport.Sub(*firstUser).Minutes())
	if minutes < 0 {
		minutes = 0
	}
	return &minutes
}

// ResolutionTime returns the hours between creation and the last update for
// tickets in a terminal state, or nil otherwise.
func (t *Ticket) ResolutionTime() *float64 {
	if !t.IsTerminal() {
		return nil
	}
	hours := t.UpdatedAt.Sub(t.CreatedAt).Hours()
	if hours < 0 {
		hours = 0
	}
	return &hours
}
