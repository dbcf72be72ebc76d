package service

import (
	"sort"
	"strings"
	"time"

	"github.com/cliphub/support-service/internal/domain"
)

// TicketFilter captures admin search parameters. Unset fields impose no
// constraint; set fields combine with logical AND. Tags is the one OR
// dimension: a ticket matches when it carries any of the requested tags.
type TicketFilter struct {
	Status      *domain.TicketStatus
	Priority    *domain.TicketPriority
	Role        *domain.RequesterRole
	Category    *string
	AssignedTo  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Search      string
	Tags        []string
}

// ApplyFilter returns the tickets matching all criteria, ordered by last
// update descending. The input slice is never mutated; identical inputs
// always yield an identical result list.
func ApplyFilter(tickets []domain.Ticket, filter TicketFilter) []domain.Ticket {
	result := make([]domain.Ticket, 0, len(tickets))
	for i := range tickets {
		if matchesFilter(&tickets[i], filter) {
			result = append(result, tickets[i])
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].UpdatedAt.Equal(result[j].UpdatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result
}

func matchesFilter(t *domain.Ticket, f TicketFilter) bool {
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if f.Priority != nil && t.Priority != *f.Priority {
		return false
	}
	if f.Role != nil && t.RequesterRole != *f.Role {
		return false
	}
	if f.Category != nil && t.Category != *f.Category {
		return false
	}
	if f.AssignedTo != nil {
		if t.AssignedTo == nil || *t.AssignedTo != *f.AssignedTo {
			return false
		}
	}
	if f.CreatedFrom != nil && t.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && t.CreatedAt.After(*f.CreatedTo) {
		return false
	}
	if len(f.Tags) > 0 && !hasAnyTag(t, f.Tags) {
		return false
	}
	if search := strings.TrimSpace(f.Search); search != "" && !matchesSearch(t, search) {
		return false
	}
	return true
}

func hasAnyTag(t *domain.Ticket, tags []string) bool {
	for _, tag := range tags {
		if t.HasTag(tag) {
			return true
		}
	}
	return false
}

// matchesSearch performs a case-insensitive substring match against the
// subject, requester name/email, and message bodies, short-circuiting on
// the first hit.
func matchesSearch(t *domain.Ticket, search string) bool {
	needle := strings.ToLower(search)
	if strings.Contains(strings.ToLower(t.Subject), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(t.RequesterName), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(t.RequesterEmail), needle) {
		return true
	}
	for i := range t.Messages {
		if strings.Contains(strings.ToLower(t.Messages[i].Body), needle) {
			return true
		}
	}
	return false
}
