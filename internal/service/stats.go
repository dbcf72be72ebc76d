package service

import (
	"sort"
	"time"

	"github.com/cliphub/support-service/internal/domain"
)

// Overview aggregates support statistics over the full ticket set.
type Overview struct {
	TotalTickets    int `json:"total_tickets"`
	OpenTickets     int `json:"open_tickets"`
	PendingTickets  int `json:"pending_tickets"`
	ResolvedTickets int `json:"resolved_tickets"`
	ClosedTickets   int `json:"closed_tickets"`

	TicketsByPriority map[domain.TicketPriority]int `json:"tickets_by_priority"`
	TicketsByCategory map[string]int                `json:"tickets_by_category"`
	TicketsByRole     map[domain.RequesterRole]int  `json:"tickets_by_role"`

	// AverageResponseTimeMinutes covers tickets with a defined response
	// time; tickets without a support reply are excluded, not zeroed.
	AverageResponseTimeMinutes float64 `json:"average_response_time_minutes"`
	// AverageResolutionTimeHours covers resolved/closed tickets only.
	AverageResolutionTimeHours float64 `json:"average_resolution_time_hours"`
	// SatisfactionScore averages submitted post-resolution ratings.
	SatisfactionScore float64 `json:"satisfaction_score"`

	AgentPerformance []AgentPerformance `json:"agent_performance"`
	DailyTrend       []TrendPoint       `json:"daily_trend"`
}

// AgentPerformance summarizes one agent's assigned ticket set. Averages
// default to 0 for agents with nothing assigned.
type AgentPerformance struct {
	Agent                      string  `json:"agent"`
	AssignedTickets            int     `json:"assigned_tickets"`
	ResolvedTickets            int     `json:"resolved_tickets"`
	AverageResponseTimeMinutes float64 `json:"average_response_time_minutes"`
	AverageSatisfaction        float64 `json:"average_satisfaction"`
}

// TrendPoint is one calendar day in the trailing 7-day trend.
type TrendPoint struct {
	Date     string `json:"date"`
	Created  int    `json:"created"`
	Resolved int    `json:"resolved"`
}

// ComputeOverview derives all aggregates fresh from the unfiltered ticket
// collection. roster contributes agents that should appear in the
// performance table even with zero assignments.
func ComputeOverview(tickets []domain.Ticket, roster []domain.Agent, now time.Time) Overview {
	overview := Overview{
		TotalTickets:      len(tickets),
		TicketsByPriority: make(map[domain.TicketPriority]int),
		TicketsByCategory: make(map[string]int),
		TicketsByRole:     make(map[domain.RequesterRole]int),
	}

	var (
		responseSum     float64
		responseCount   int
		resolutionSum   float64
		resolutionCnt   int
		satisfactionSum float64
		satisfactionCnt int
	)

	perAgent := make(map[string]*AgentPerformance)
	for _, agent := range roster {
		perAgent[agent.Name] = &AgentPerformance{Agent: agent.Name}
	}

	for i := range tickets {
		t := &tickets[i]
		switch t.Status {
		case domain.TicketStatusOpen:
			overview.OpenTickets++
		case domain.TicketStatusPending:
			overview.PendingTickets++
		case domain.TicketStatusResolved:
			overview.ResolvedTickets++
		case domain.TicketStatusClosed:
			overview.ClosedTickets++
		}
		overview.TicketsByPriority[t.Priority]++
		if t.Category != "" {
			overview.TicketsByCategory[t.Category]++
		}
		overview.TicketsByRole[t.RequesterRole]++

		if rt := t.ResponseTime(); rt != nil && *rt > 0 {
			responseSum += float64(*rt)
			responseCount++
		}
		if hours := t.ResolutionTime(); hours != nil {
			resolutionSum += *hours
			resolutionCnt++
		}
		if t.Satisfaction != nil {
			satisfactionSum += float64(*t.Satisfaction)
			satisfactionCnt++
		}

		if t.AssignedTo != nil && *t.AssignedTo != "" {
			perf, ok := perAgent[*t.AssignedTo]
			if !ok {
				perf = &AgentPerformance{Agent: *t.AssignedTo}
				perAgent[*t.AssignedTo] = perf
			}
			perf.AssignedTickets++
			if t.IsTerminal() {
				perf.ResolvedTickets++
			}
		}
	}

	if responseCount > 0 {
		overview.AverageResponseTimeMinutes = responseSum / float64(responseCount)
	}
	if resolutionCnt > 0 {
		overview.AverageResolutionTimeHours = resolutionSum / float64(resolutionCnt)
	}
	if satisfactionCnt > 0 {
		overview.SatisfactionScore = satisfactionSum / float64(satisfactionCnt)
	}

	fillAgentAverages(perAgent, tickets)

	names := make([]string, 0, len(perAgent))
	for name := range perAgent {
		names = append(names, name)
	}
	sort.Strings(names)
	overview.AgentPerformance = make([]AgentPerformance, 0, len(names))
	for _, name := range names {
		overview.AgentPerformance = append(overview.AgentPerformance, *perAgent[name])
	}

	overview.DailyTrend = computeTrend(tickets, now)
	return overview
}

func fillAgentAverages(perAgent map[string]*AgentPerformance, tickets []domain.Ticket) {
	for name, perf := range perAgent {
		var (
			responseSum   float64
			responseCount int
			ratingSum     float64
			ratingCount   int
		)
		for i := range tickets {
			t := &tickets[i]
			if t.AssignedTo == nil || *t.AssignedTo != name {
				continue
			}
			if rt := t.ResponseTime(); rt != nil && *rt > 0 {
				responseSum += float64(*rt)
				responseCount++
			}
			if t.Satisfaction != nil {
				ratingSum += float64(*t.Satisfaction)
				ratingCount++
			}
		}
		if responseCount > 0 {
			perf.AverageResponseTimeMinutes = responseSum / float64(responseCount)
		}
		if ratingCount > 0 {
			perf.AverageSatisfaction = ratingSum / float64(ratingCount)
		}
	}
}

// computeTrend buckets the trailing 7 calendar days, today included.
func computeTrend(tickets []domain.Ticket, now time.Time) []TrendPoint {
	trend := make([]TrendPoint, 0, 7)
	for offset := 6; offset >= 0; offset-- {
		day := now.AddDate(0, 0, -offset)
		point := TrendPoint{Date: day.Format("2006-01-02")}
		for i := range tickets {
			t := &tickets[i]
			if sameDay(t.CreatedAt, day) {
				point.Created++
			}
			if t.IsTerminal() && sameDay(t.UpdatedAt, day) {
				point.Resolved++
			}
		}
		trend = append(trend, point)
	}
	return trend
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
