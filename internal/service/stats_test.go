package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliphub/support-service/internal/domain"
)

func TestComputeOverviewStatusCountsSumToTotal(t *testing.T) {
	now := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)
	tickets := []domain.Ticket{
		ticketFixture("a", func(tk *domain.Ticket) { tk.Status = domain.TicketStatusOpen }),
		ticketFixture("b", func(tk *domain.Ticket) { tk.Status = domain.TicketStatusPending }),
		ticketFixture("c", func(tk *domain.Ticket) { tk.Status = domain.TicketStatusResolved }),
		ticketFixture("d", func(tk *domain.Ticket) { tk.Status = domain.TicketStatusClosed }),
		ticketFixture("e", func(tk *domain.Ticket) { tk.Status = domain.TicketStatusOpen }),
	}

	overview := ComputeOverview(tickets, nil, now)

	assert.Equal(t, 5, overview.TotalTickets)
	sum := overview.OpenTickets + overview.PendingTickets + overview.ResolvedTickets + overview.ClosedTickets
	assert.Equal(t, overview.TotalTickets, sum)

	prioritySum := 0
	for _, n := range overview.TicketsByPriority {
		prioritySum += n
	}
	assert.Equal(t, overview.TotalTickets, prioritySum)

	roleSum := 0
	for _, n := range overview.TicketsByRole {
		roleSum += n
	}
	assert.Equal(t, overview.TotalTickets, roleSum)
}

func TestComputeOverviewResponseTimeExcludesUnanswered(t *testing.T) {
	now := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)
	base := now.Add(-24 * time.Hour)
	tickets := []domain.Ticket{
		// Answered after 10 minutes.
		ticketFixture("a", func(tk *domain.Ticket) {
			tk.Messages = []domain.Message{
				{Sender: domain.SenderUser, CreatedAt: base},
				{Sender: domain.SenderSupport, CreatedAt: base.Add(10 * time.Minute)},
			}
		}),
		// Answered after 30 minutes.
		ticketFixture("b", func(tk *domain.Ticket) {
			tk.Messages = []domain.Message{
				{Sender: domain.SenderUser, CreatedAt: base},
				{Sender: domain.SenderSupport, CreatedAt: base.Add(30 * time.Minute)},
			}
		}),
		// No support reply: excluded, not counted as zero.
		ticketFixture("c", func(tk *domain.Ticket) {
			tk.Messages = []domain.Message{{Sender: domain.SenderUser, CreatedAt: base}}
		}),
	}

	overview := ComputeOverview(tickets, nil, now)
	assert.InDelta(t, 20.0, overview.AverageResponseTimeMinutes, 0.001)
}

func TestComputeOverviewResolutionCoversTerminalOnly(t *testing.T) {
	now := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)
	tickets := []domain.Ticket{
		ticketFixture("a", func(tk *domain.Ticket) {
			tk.Status = domain.TicketStatusResolved
			tk.CreatedAt = now.Add(-4 * time.Hour)
			tk.UpdatedAt = now
		}),
		ticketFixture("b", func(tk *domain.Ticket) {
			tk.Status = domain.TicketStatusOpen
			tk.CreatedAt = now.Add(-100 * time.Hour)
			tk.UpdatedAt = now
		}),
	}
	overview := ComputeOverview(tickets, nil, now)
	assert.InDelta(t, 4.0, overview.AverageResolutionTimeHours, 0.001)
}

func TestComputeOverviewSatisfactionAveragesSubmittedOnly(t *testing.T) {
	now := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)
	five, three := 5, 3
	tickets := []domain.Ticket{
		ticketFixture("a", func(tk *domain.Ticket) { tk.Satisfaction = &five }),
		ticketFixture("b", func(tk *domain.Ticket) { tk.Satisfaction = &three }),
		ticketFixture("c", nil),
	}
	overview := ComputeOverview(tickets, nil, now)
	assert.InDelta(t, 4.0, overview.SatisfactionScore, 0.001)
}

func TestComputeOverviewAgentDefaultsToZero(t *testing.T) {
	now := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)
	roster := []domain.Agent{
		{Name: "Idle", Active: true},
		{Name: "Busy", Active: true},
	}
	busy := "Busy"
	rating := 4
	tickets := []domain.Ticket{
		ticketFixture("a", func(tk *domain.Ticket) {
			tk.Status = domain.TicketStatusResolved
			tk.AssignedTo = &busy
			tk.Satisfaction = &rating
		}),
	}

	overview := ComputeOverview(tickets, roster, now)
	require.Len(t, overview.AgentPerformance, 2)

	// Sorted by name.
	assert.Equal(t, "Busy", overview.AgentPerformance[0].Agent)
	assert.Equal(t, 1, overview.AgentPerformance[0].AssignedTickets)
	assert.Equal(t, 1, overview.AgentPerformance[0].ResolvedTickets)
	assert.InDelta(t, 4.0, overview.AgentPerformance[0].AverageSatisfaction, 0.001)

	idle := overview.AgentPerformance[1]
	assert.Equal(t, "Idle", idle.Agent)
	assert.Zero(t, idle.AssignedTickets)
	assert.Zero(t, idle.ResolvedTickets)
	assert.Zero(t, idle.AverageResponseTimeMinutes)
	assert.Zero(t, idle.AverageSatisfaction)
}

func TestComputeOverviewDailyTrend(t *testing.T) {
	now := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)
	tickets := []domain.Ticket{
		ticketFixture("today", func(tk *domain.Ticket) {
			tk.CreatedAt = now.Add(-1 * time.Hour)
			tk.UpdatedAt = now.Add(-1 * time.Hour)
		}),
		ticketFixture("resolved-today", func(tk *domain.Ticket) {
			tk.Status = domain.TicketStatusResolved
			tk.CreatedAt = now.AddDate(0, 0, -3)
			tk.UpdatedAt = now
		}),
		ticketFixture("ancient", func(tk *domain.Ticket) {
			tk.CreatedAt = now.AddDate(0, 0, -30)
			tk.UpdatedAt = now.AddDate(0, 0, -30)
		}),
	}

	overview := ComputeOverview(tickets, nil, now)
	require.Len(t, overview.DailyTrend, 7)

	assert.Equal(t, now.AddDate(0, 0, -6).Format("2006-01-02"), overview.DailyTrend[0].Date, "oldest day first")
	today := overview.DailyTrend[6]
	assert.Equal(t, now.Format("2006-01-02"), today.Date)
	assert.Equal(t, 1, today.Created)
	assert.Equal(t, 1, today.Resolved)

	threeDaysAgo := overview.DailyTrend[3]
	assert.Equal(t, 1, threeDaysAgo.Created)
}

func TestComputeOverviewEmptySet(t *testing.T) {
	overview := ComputeOverview(nil, nil, time.Now())
	assert.Zero(t, overview.TotalTickets)
	assert.Zero(t, overview.AverageResponseTimeMinutes)
	assert.Zero(t, overview.AverageResolutionTimeHours)
	assert.Zero(t, overview.SatisfactionScore)
	assert.Len(t, overview.DailyTrend, 7)
}
