package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cliphub/support-service/internal/domain"
	"github.com/cliphub/support-service/internal/events"
	"github.com/cliphub/support-service/internal/repository"
	apperrors "github.com/cliphub/support-service/pkg/util"
)

// TicketService coordinates requester-facing ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	messages   repository.MessageRepository
	history    repository.TicketHistoryRepository
	dispatcher events.Dispatcher
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	MessageRepo repository.MessageRepository
	HistoryRepo repository.TicketHistoryRepository
	Dispatcher  events.Dispatcher
}

// TicketCreateInput describes ticket creation payload. Body seeds the
// first message of the thread.
type TicketCreateInput struct {
	Subject     string
	Category    string
	Priority    domain.TicketPriority
	Body        string
	Attachments []domain.Attachment
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		messages:   deps.MessageRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
	}
}

// CreateTicket opens a ticket for a requester with one seed message.
func (s *TicketService) CreateTicket(ctx context.Context, user *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	if user == nil {
		return nil, apperrors.NewUnauthorized("marketplace account required")
	}
	subject := strings.TrimSpace(input.Subject)
	body := strings.TrimSpace(input.Body)
	if subject == "" || body == "" {
		return nil, apperrors.NewValidationError("subject and body required", nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityNormal
	}
	if !domain.ValidPriority(priority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}

	ticket := &domain.Ticket{
		ID:             uuid.NewString(),
		Subject:        subject,
		Category:       strings.TrimSpace(input.Category),
		Status:         domain.TicketStatusOpen,
		Priority:       priority,
		RequesterID:    user.ID,
		RequesterName:  user.Name,
		RequesterEmail: user.Email,
		RequesterRole:  user.Role,
		Tags:           []string{},
		InternalNotes:  []string{},
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	seed := &domain.Message{
		ID:          uuid.NewString(),
		TicketID:    ticket.ID,
		Sender:      domain.SenderUser,
		SenderName:  user.Name,
		Body:        body,
		Attachments: input.Attachments,
		Status:      domain.DeliverySent,
	}
	if err := s.messages.Create(ctx, seed); err != nil {
		return nil, apperrors.MapError(err)
	}
	ticket.Messages = []domain.Message{*seed}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    userActor(user.ID),
		Payload: events.TicketCreatedPayload{
			Subject:       ticket.Subject,
			Category:      ticket.Category,
			Priority:      ticket.Priority,
			RequesterRole: ticket.RequesterRole,
		},
	})
	return ticket, nil
}

// ListUserTickets returns tickets the requester owns, newest update first.
func (s *TicketService) ListUserTickets(ctx context.Context, userID string) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListByRequester(ctx, userID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// GetTicketForUser fetches a hydrated ticket ensuring ownership.
func (s *TicketService) GetTicketForUser(ctx context.Context, userID, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.RequesterID != userID {
		return nil, apperrors.NewForbidden("access denied")
	}
	if err := s.hydrate(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// AddUserMessage appends a requester message to the thread and touches the
// ticket's update timestamp.
func (s *TicketService) AddUserMessage(ctx context.Context, user *domain.User, ticketID, body string, attachments []domain.Attachment) (*domain.Message, error) {
	if user == nil {
		return nil, apperrors.NewUnauthorized("marketplace account required")
	}
	if strings.TrimSpace(body) == "" {
		return nil, apperrors.NewValidationError("body required", nil)
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.RequesterID != user.ID {
		return nil, apperrors.NewForbidden("access denied")
	}

	msg := &domain.Message{
		ID:          uuid.NewString(),
		TicketID:    ticket.ID,
		Sender:      domain.SenderUser,
		SenderName:  user.Name,
		Body:        strings.TrimSpace(body),
		Attachments: attachments,
		Status:      domain.DeliverySent,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, mapTicketErr(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketMessageAdded,
		TicketID: ticket.ID,
		Actor:    userActor(user.ID),
		Payload: events.TicketMessageAddedPayload{
			MessageID:   msg.ID,
			Sender:      msg.Sender,
			BodyPreview: stringPreview(msg.Body, 120),
		},
	})
	return msg, nil
}

// SubmitSatisfaction records the requester's post-resolution rating. Only
// resolved or closed tickets accept a rating.
func (s *TicketService) SubmitSatisfaction(ctx context.Context, userID, ticketID string, rating int) (*domain.Ticket, error) {
	if rating < 1 || rating > 5 {
		return nil, apperrors.NewValidationError("rating must be between 1 and 5", map[string]any{"rating": rating})
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.RequesterID != userID {
		return nil, apperrors.NewForbidden("access denied")
	}
	if !ticket.IsTerminal() {
		return nil, apperrors.NewConflict("ticket is not resolved yet", map[string]any{"status": ticket.Status})
	}
	ticket.Satisfaction = &rating
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, mapTicketErr(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketRated,
		TicketID: ticket.ID,
		Actor:    userActor(userID),
		Payload:  events.TicketRatedPayload{Satisfaction: rating},
	})
	return ticket, nil
}

func (s *TicketService) getTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) hydrate(ctx context.Context, ticket *domain.Ticket) error {
	msgs, err := s.messages.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return apperrors.MapError(err)
	}
	ticket.Messages = msgs
	return nil
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	publishEvent(ctx, s.dispatcher, event)
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = dispatcher.Publish(ctx, event)
}

func mapTicketErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrStaleRevision) {
		return apperrors.NewConflict("ticket was modified concurrently, reload and retry", nil)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("ticket", nil)
	}
	return apperrors.MapError(err)
}

func userActor(userID string) events.Actor {
	return events.Actor{Type: domain.SubjectTypeUser, UserID: &userID}
}

func agentActor(agentID string) events.Actor {
	return events.Actor{Type: domain.SubjectTypeAgent, AgentID: &agentID}
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
