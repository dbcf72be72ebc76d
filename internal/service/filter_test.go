package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliphub/support-service/internal/domain"
)

func ticketFixture(id string, mutate func(*domain.Ticket)) domain.Ticket {
	base := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)
	ticket := domain.Ticket{
		ID:             id,
		Subject:        "Payout delayed",
		Category:       "billing",
		Status:         domain.TicketStatusOpen,
		Priority:       domain.TicketPriorityNormal,
		RequesterName:  "Dana",
		RequesterEmail: "dana@example.com",
		RequesterRole:  domain.RequesterRoleClipper,
		CreatedAt:      base,
		UpdatedAt:      base,
	}
	if mutate != nil {
		mutate(&ticket)
	}
	return ticket
}

func TestApplyFilterNoConstraints(t *testing.T) {
	tickets := []domain.Ticket{ticketFixture("a", nil), ticketFixture("b", nil)}
	got := ApplyFilter(tickets, TicketFilter{})
	assert.Len(t, got, 2)
}

func TestApplyFilterDoesNotMutateInput(t *testing.T) {
	early := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(48 * time.Hour)
	tickets := []domain.Ticket{
		ticketFixture("a", func(tk *domain.Ticket) { tk.UpdatedAt = early }),
		ticketFixture("b", func(tk *domain.Ticket) { tk.UpdatedAt = late }),
	}
	_ = ApplyFilter(tickets, TicketFilter{})
	assert.Equal(t, "a", tickets[0].ID, "input order preserved")

	first := ApplyFilter(tickets, TicketFilter{})
	second := ApplyFilter(tickets, TicketFilter{})
	assert.Equal(t, first, second, "same input yields same output")
}

func TestApplyFilterDimensionsAreANDed(t *testing.T) {
	tickets := []domain.Ticket{
		ticketFixture("a", func(tk *domain.Ticket) {
			tk.Status = domain.TicketStatusPending
			tk.Priority = domain.TicketPriorityHigh
		}),
		ticketFixture("b", func(tk *domain.Ticket) {
			tk.Status = domain.TicketStatusPending
		}),
		ticketFixture("c", func(tk *domain.Ticket) {
			tk.Priority = domain.TicketPriorityHigh
		}),
	}
	status := domain.TicketStatusPending
	priority := domain.TicketPriorityHigh
	got := ApplyFilter(tickets, TicketFilter{Status: &status, Priority: &priority})
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestApplyFilterTagsAreORed(t *testing.T) {
	tickets := []domain.Ticket{
		ticketFixture("a", func(tk *domain.Ticket) { tk.Tags = []string{"payment"} }),
		ticketFixture("b", func(tk *domain.Ticket) { tk.Tags = []string{"fraud"} }),
		ticketFixture("c", func(tk *domain.Ticket) { tk.Tags = []string{"other"} }),
	}
	got := ApplyFilter(tickets, TicketFilter{Tags: []string{"payment", "fraud"}})
	require.Len(t, got, 2)
}

func TestApplyFilterSearchIsCaseInsensitive(t *testing.T) {
	tickets := []domain.Ticket{
		ticketFixture("a", func(tk *domain.Ticket) { tk.Subject = "Campaign budget question" }),
		ticketFixture("b", nil),
		ticketFixture("c", func(tk *domain.Ticket) {
			tk.Subject = "Other"
			tk.Messages = []domain.Message{{Body: "my CAMPAIGN disappeared"}}
		}),
	}
	got := ApplyFilter(tickets, TicketFilter{Search: "campaign"})
	require.Len(t, got, 2)
}

func TestApplyFilterCreatedRange(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2026, 4, d, 0, 0, 0, 0, time.UTC) }
	tickets := []domain.Ticket{
		ticketFixture("a", func(tk *domain.Ticket) { tk.CreatedAt = day(1) }),
		ticketFixture("b", func(tk *domain.Ticket) { tk.CreatedAt = day(10) }),
		ticketFixture("c", func(tk *domain.Ticket) { tk.CreatedAt = day(20) }),
	}
	from := day(5)
	to := day(15)
	got := ApplyFilter(tickets, TicketFilter{CreatedFrom: &from, CreatedTo: &to})
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
}

func TestApplyFilterOrdersByUpdatedDescending(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2026, 4, d, 0, 0, 0, 0, time.UTC) }
	tickets := []domain.Ticket{
		ticketFixture("old", func(tk *domain.Ticket) { tk.UpdatedAt = day(1) }),
		ticketFixture("new", func(tk *domain.Ticket) { tk.UpdatedAt = day(9) }),
		ticketFixture("mid", func(tk *domain.Ticket) { tk.UpdatedAt = day(5) }),
	}
	got := ApplyFilter(tickets, TicketFilter{})
	require.Len(t, got, 3)
	assert.Equal(t, []string{"new", "mid", "old"}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestApplyFilterTieBreaksByID(t *testing.T) {
	when := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)
	tickets := []domain.Ticket{
		ticketFixture("b", func(tk *domain.Ticket) { tk.UpdatedAt = when }),
		ticketFixture("a", func(tk *domain.Ticket) { tk.UpdatedAt = when }),
	}
	got := ApplyFilter(tickets, TicketFilter{})
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}

func TestApplyFilterAssignedTo(t *testing.T) {
	sam := "Sam"
	tickets := []domain.Ticket{
		ticketFixture("a", func(tk *domain.Ticket) { tk.AssignedTo = &sam }),
		ticketFixture("b", nil),
	}
	got := ApplyFilter(tickets, TicketFilter{AssignedTo: &sam})
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}
