package domain

import "fmt"

// InvalidTransitionError is returned when a status change is not allowed by
// the ticket lifecycle.
type InvalidTransitionError struct {
	From TicketStatus
	To   TicketStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid ticket status transition %s -> %s", e.From, e.To)
}

// allowedTransitions encodes the ticket lifecycle: open -> pending ->
// resolved -> closed, with reopen paths back to pending.
var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusOpen:     {TicketStatusPending, TicketStatusResolved},
	TicketStatusPending:  {TicketStatusOpen, TicketStatusResolved},
	TicketStatusResolved: {TicketStatusPending, TicketStatusClosed},
	TicketStatusClosed:   {TicketStatusPending},
}

// CanTransition reports whether the lifecycle permits current -> next.
func CanTransition(current, next TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Transition validates and applies a status change on the ticket. Terminal
// entry timestamps are managed by the caller.
func (t *Ticket) Transition(next TicketStatus) error {
	if !CanTransition(t.Status, next) {
		return &InvalidTransitionError{From: t.Status, To: next}
	}
	t.Status = next
	return nil
}

// ValidStatus reports whether s is a known ticket status.
func ValidStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusOpen, TicketStatusPending, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// ValidPriority reports whether p is a known priority.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityNormal, TicketPriorityHigh:
		return true
	}
	return false
}
