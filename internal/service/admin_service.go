package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cliphub/support-service/internal/domain"
	"github.com/cliphub/support-service/internal/events"
	"github.com/cliphub/support-service/internal/repository"
	apperrors "github.com/cliphub/support-service/pkg/util"
)

// AdminService carries the support-team side: filtered listing, statistics,
// mutating admin actions, bulk operations and CSV export.
type AdminService struct {
	tickets    repository.TicketRepository
	messages   repository.MessageRepository
	history    repository.TicketHistoryRepository
	agents     repository.AgentRepository
	dispatcher events.Dispatcher
}

// AdminDependencies bundles repositories for the admin service.
type AdminDependencies struct {
	TicketRepo  repository.TicketRepository
	MessageRepo repository.MessageRepository
	HistoryRepo repository.TicketHistoryRepository
	AgentRepo   repository.AgentRepository
	Dispatcher  events.Dispatcher
}

// BulkResult reports the outcome of a bulk action. Bulk operations carry
// no transactional guarantee: a failure partway leaves earlier tickets
// updated, and both halves are reported.
type BulkResult struct {
	Updated []string          `json:"updated"`
	Failed  map[string]string `json:"failed,omitempty"`
}

// NewAdminService constructs the service.
func NewAdminService(deps AdminDependencies) *AdminService {
	return &AdminService{
		tickets:    deps.TicketRepo,
		messages:   deps.MessageRepo,
		history:    deps.HistoryRepo,
		agents:     deps.AgentRepo,
		dispatcher: deps.Dispatcher,
	}
}

// ListTickets returns the hydrated ticket set narrowed by filter, newest
// update first.
func (s *AdminService) ListTickets(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	tickets, err := s.hydrateAll(ctx)
	if err != nil {
		return nil, err
	}
	return ApplyFilter(tickets, filter), nil
}

// GetTicket fetches a hydrated ticket and marks the requester's messages
// read, since the agent is now looking at the thread.
func (s *AdminService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.messages.MarkThreadRead(ctx, ticket.ID, domain.SenderUser); err != nil {
		return nil, apperrors.MapError(err)
	}
	msgs, err := s.messages.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	ticket.Messages = msgs
	return ticket, nil
}

// Reply appends a support message. An open ticket moves to pending so the
// requester sees it is being worked.
func (s *AdminService) Reply(ctx context.Context, agent *domain.Agent, ticketID, body string, attachments []domain.Attachment) (*domain.Ticket, error) {
	if agent == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	if strings.TrimSpace(body) == "" {
		return nil, apperrors.NewValidationError("body required", nil)
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	msg := &domain.Message{
		ID:          uuid.NewString(),
		TicketID:    ticket.ID,
		Sender:      domain.SenderSupport,
		SenderName:  agent.Name,
		Body:        strings.TrimSpace(body),
		Attachments: attachments,
		Status:      domain.DeliverySent,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, apperrors.MapError(err)
	}

	if ticket.Status == domain.TicketStatusOpen {
		oldStatus := ticket.Status
		if err := ticket.Transition(domain.TicketStatusPending); err != nil {
			return nil, apperrors.MapError(err)
		}
		s.recordChange(ctx, agent.ID, ticket.ID, domain.ChangeTypeStatus,
			map[string]any{"status": oldStatus},
			map[string]any{"status": ticket.Status, "comment": "first_reply"})
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, mapTicketErr(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketMessageAdded,
		TicketID: ticket.ID,
		Actor:    agentActor(agent.ID),
		Payload: events.TicketMessageAddedPayload{
			MessageID:   msg.ID,
			Sender:      msg.Sender,
			BodyPreview: stringPreview(msg.Body, 120),
		},
	})
	if err := s.hydrateOne(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// UpdateStatus applies a lifecycle transition. Illegal transitions are
// rejected with a conflict carrying the attempted edge.
func (s *AdminService) UpdateStatus(ctx context.Context, agent *domain.Agent, ticketID string, newStatus domain.TicketStatus, comment string) (*domain.Ticket, error) {
	if agent == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	if !domain.ValidStatus(newStatus) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": newStatus})
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	oldStatus := ticket.Status
	if err := ticket.Transition(newStatus); err != nil {
		var invalid *domain.InvalidTransitionError
		if errors.As(err, &invalid) {
			return nil, apperrors.NewConflict("invalid status transition", map[string]any{
				"from": invalid.From,
				"to":   invalid.To,
			})
		}
		return nil, apperrors.MapError(err)
	}
	if ticket.IsTerminal() {
		if ticket.ResolvedAt == nil {
			now := time.Now()
			ticket.ResolvedAt = &now
		}
	} else {
		ticket.ResolvedAt = nil
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, mapTicketErr(err)
	}
	s.recordChange(ctx, agent.ID, ticket.ID, domain.ChangeTypeStatus,
		map[string]any{"status": oldStatus},
		map[string]any{"status": newStatus, "comment": comment})

	s.publish(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    agentActor(agent.ID),
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
			Comment:   comment,
		},
	})
	return ticket, nil
}

// UpdatePriority changes ticket priority.
func (s *AdminService) UpdatePriority(ctx context.Context, agent *domain.Agent, ticketID string, newPriority domain.TicketPriority) (*domain.Ticket, error) {
	if agent == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	if !domain.ValidPriority(newPriority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": newPriority})
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	oldPriority := ticket.Priority
	ticket.Priority = newPriority
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, mapTicketErr(err)
	}
	s.recordChange(ctx, agent.ID, ticket.ID, domain.ChangeTypePriority,
		map[string]any{"priority": oldPriority},
		map[string]any{"priority": newPriority})

	s.publish(ctx, events.Event{
		Type:     events.EventTicketPriorityChanged,
		TicketID: ticket.ID,
		Actor:    agentActor(agent.ID),
		Payload: events.TicketPriorityChangedPayload{
			OldPriority: oldPriority,
			NewPriority: newPriority,
		},
	})
	return ticket, nil
}

// Assign hands the ticket to the named agent. An empty name clears the
// assignment. The name must match an active roster entry.
func (s *AdminService) Assign(ctx context.Context, actor *domain.Agent, ticketID, agentName string) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	agentName = strings.TrimSpace(agentName)
	if agentName != "" {
		if err := s.checkRosterAgent(ctx, agentName); err != nil {
			return nil, err
		}
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	oldAssignee := ticket.AssignedTo
	if agentName == "" {
		ticket.AssignedTo = nil
	} else {
		ticket.AssignedTo = &agentName
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, mapTicketErr(err)
	}
	s.recordChange(ctx, actor.ID, ticket.ID, domain.ChangeTypeAssignee,
		map[string]any{"assigned_to": oldAssignee},
		map[string]any{"assigned_to": ticket.AssignedTo})

	s.publish(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		Actor:    agentActor(actor.ID),
		Payload:  events.TicketAssignedPayload{AssignedTo: ticket.AssignedTo},
	})
	return ticket, nil
}

// AddTag adds a tag to the ticket; adding a tag that is already present is
// a no-op.
func (s *AdminService) AddTag(ctx context.Context, agent *domain.Agent, ticketID, tag string) (*domain.Ticket, error) {
	return s.mutateTags(ctx, agent, ticketID, tag, true)
}

// RemoveTag removes a tag; removing an absent tag is a no-op.
func (s *AdminService) RemoveTag(ctx context.Context, agent *domain.Agent, ticketID, tag string) (*domain.Ticket, error) {
	return s.mutateTags(ctx, agent, ticketID, tag, false)
}

func (s *AdminService) mutateTags(ctx context.Context, agent *domain.Agent, ticketID, tag string, add bool) (*domain.Ticket, error) {
	if agent == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return nil, apperrors.NewValidationError("tag required", nil)
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	oldTags := append([]string{}, ticket.Tags...)
	if add {
		if ticket.HasTag(tag) {
			return ticket, nil
		}
		ticket.Tags = append(ticket.Tags, tag)
	} else {
		if !ticket.HasTag(tag) {
			return ticket, nil
		}
		kept := make([]string, 0, len(ticket.Tags))
		for _, existing := range ticket.Tags {
			if existing != tag {
				kept = append(kept, existing)
			}
		}
		ticket.Tags = kept
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, mapTicketErr(err)
	}
	s.recordChange(ctx, agent.ID, ticket.ID, domain.ChangeTypeTags,
		map[string]any{"tags": oldTags},
		map[string]any{"tags": ticket.Tags})

	s.publish(ctx, events.Event{
		Type:     events.EventTicketTagsChanged,
		TicketID: ticket.ID,
		Actor:    agentActor(agent.ID),
		Payload:  events.TicketTagsChangedPayload{Tags: ticket.Tags},
	})
	return ticket, nil
}

// AddInternalNote appends an admin-only note. Notes are append-only.
func (s *AdminService) AddInternalNote(ctx context.Context, agent *domain.Agent, ticketID, note string) (*domain.Ticket, error) {
	if agent == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, apperrors.NewValidationError("note required", nil)
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	ticket.InternalNotes = append(ticket.InternalNotes, note)
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, mapTicketErr(err)
	}
	s.recordChange(ctx, agent.ID, ticket.ID, domain.ChangeTypeNote,
		nil,
		map[string]any{"note": stringPreview(note, 120)})

	s.publish(ctx, events.Event{
		Type:     events.EventTicketNoteAdded,
		TicketID: ticket.ID,
		Actor:    agentActor(agent.ID),
	})
	return ticket, nil
}

// BulkUpdateStatus applies the transition to every listed ticket. Failures
// are collected per id and do not stop the remaining ids.
func (s *AdminService) BulkUpdateStatus(ctx context.Context, agent *domain.Agent, ticketIDs []string, newStatus domain.TicketStatus, comment string) BulkResult {
	result := BulkResult{Updated: []string{}, Failed: map[string]string{}}
	for _, id := range ticketIDs {
		if _, err := s.UpdateStatus(ctx, agent, id, newStatus, comment); err != nil {
			result.Failed[id] = err.Error()
			continue
		}
		result.Updated = append(result.Updated, id)
	}
	return result
}

// BulkAssign assigns every listed ticket to the named agent. The roster is
// checked once up front.
func (s *AdminService) BulkAssign(ctx context.Context, actor *domain.Agent, ticketIDs []string, agentName string) (BulkResult, error) {
	agentName = strings.TrimSpace(agentName)
	if agentName != "" {
		if err := s.checkRosterAgent(ctx, agentName); err != nil {
			return BulkResult{}, err
		}
	}
	result := BulkResult{Updated: []string{}, Failed: map[string]string{}}
	for _, id := range ticketIDs {
		if _, err := s.Assign(ctx, actor, id, agentName); err != nil {
			result.Failed[id] = err.Error()
			continue
		}
		result.Updated = append(result.Updated, id)
	}
	return result, nil
}

// Delete removes a ticket permanently.
func (s *AdminService) Delete(ctx context.Context, agent *domain.Agent, ticketID string) error {
	if agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	if err := s.tickets.Delete(ctx, ticketID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return apperrors.MapError(err)
	}
	s.publish(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticketID,
		Actor:    agentActor(agent.ID),
	})
	return nil
}

// Stats computes the overview from the full, unfiltered ticket set.
func (s *AdminService) Stats(ctx context.Context) (*Overview, error) {
	tickets, err := s.hydrateAll(ctx)
	if err != nil {
		return nil, err
	}
	roster, err := s.agents.List(ctx, repository.AgentFilter{})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	overview := ComputeOverview(tickets, roster, time.Now())
	return &overview, nil
}

// ExportCSV streams the filtered ticket list as CSV and returns the number
// of exported rows (header excluded).
func (s *AdminService) ExportCSV(ctx context.Context, filter TicketFilter, w io.Writer) (int, error) {
	tickets, err := s.ListTickets(ctx, filter)
	if err != nil {
		return 0, err
	}
	if err := WriteTicketsCSV(w, tickets); err != nil {
		return 0, apperrors.MapError(err)
	}
	return len(tickets), nil
}

// History lists audit trail entries for a ticket, newest first.
func (s *AdminService) History(ctx context.Context, ticketID string, limit, offset int) ([]domain.TicketHistory, error) {
	if _, err := s.getTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	entries, err := s.history.ListByTicket(ctx, ticketID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

func (s *AdminService) checkRosterAgent(ctx context.Context, name string) error {
	agent, err := s.agents.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("agent", map[string]any{"agent": name})
		}
		return apperrors.MapError(err)
	}
	if !agent.Active {
		return apperrors.NewConflict("agent deactivated", map[string]any{"agent": name})
	}
	return nil
}

func (s *AdminService) getTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *AdminService) hydrateOne(ctx context.Context, ticket *domain.Ticket) error {
	msgs, err := s.messages.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return apperrors.MapError(err)
	}
	ticket.Messages = msgs
	return nil
}

func (s *AdminService) hydrateAll(ctx context.Context) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListAll(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	threads, err := s.messages.ListAll(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	for i := range tickets {
		tickets[i].Messages = threads[tickets[i].ID]
	}
	return tickets, nil
}

func (s *AdminService) recordChange(ctx context.Context, agentID, ticketID string, changeType domain.TicketChangeType, oldValue, newValue map[string]any) {
	if s.history == nil {
		return
	}
	_ = s.history.Create(ctx, &domain.TicketHistory{
		TicketID:      ticketID,
		ChangedByType: domain.SubjectTypeAgent,
		ChangedByID:   &agentID,
		ChangeType:    changeType,
		OldValue:      oldValue,
		NewValue:      newValue,
	})
}

func (s *AdminService) publish(ctx context.Context, event events.Event) {
	publishEvent(ctx, s.dispatcher, event)
}
