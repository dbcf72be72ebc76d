package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/cliphub/support-service/internal/api/dto"
	"github.com/cliphub/support-service/internal/auth"
	"github.com/cliphub/support-service/internal/domain"
	"github.com/cliphub/support-service/internal/service"
	apperrors "github.com/cliphub/support-service/pkg/util"
)

// TicketsHandler manages requester-facing ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("marketplace account required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	ticket, err := h.service.CreateTicket(c.Context(), principal.User, service.TicketCreateInput{
		Subject:     req.Subject,
		Category:    req.Category,
		Priority:    domain.TicketPriority(req.Priority),
		Body:        req.Body,
		Attachments: attachmentInputs(req.Attachments),
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("marketplace account required")
	}
	tickets, err := h.service.ListUserTickets(c.Context(), principal.User.ID)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("marketplace account required")
	}
	ticket, err := h.service.GetTicketForUser(c.Context(), principal.User.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// AddMessage POST /tickets/:id/messages.
func (h *TicketsHandler) AddMessage(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("marketplace account required")
	}
	var req dto.CreateMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	msg, err := h.service.AddUserMessage(c.Context(), principal.User, c.Params("id"), req.Body, attachmentInputs(req.Attachments))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": messageResponse(msg)})
}

// RateTicket POST /tickets/:id/satisfaction.
func (h *TicketsHandler) RateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("marketplace account required")
	}
	var req dto.RateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	ticket, err := h.service.SubmitSatisfaction(c.Context(), principal.User.ID, c.Params("id"), req.Rating)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

func attachmentInputs(payloads []dto.AttachmentPayload) []domain.Attachment {
	if len(payloads) == 0 {
		return nil
	}
	attachments := make([]domain.Attachment, 0, len(payloads))
	for _, att := range payloads {
		attachments = append(attachments, domain.Attachment{
			Name:       att.Name,
			MimeType:   att.MimeType,
			StorageKey: att.StorageKey,
		})
	}
	return attachments
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:           ticket.ID,
		Subject:      ticket.Subject,
		Category:     ticket.Category,
		Status:       ticket.Status,
		Priority:     ticket.Priority,
		UserName:     ticket.RequesterName,
		UserRole:     ticket.RequesterRole,
		AssignedTo:   ticket.AssignedTo,
		Tags:         ticket.Tags,
		Satisfaction: ticket.Satisfaction,
		Revision:     ticket.Revision,
		CreatedAt:    ticket.CreatedAt,
		UpdatedAt:    ticket.UpdatedAt,
	}
}

func ticketDetail(ticket *domain.Ticket) dto.TicketDetailResponse {
	msgs := make([]dto.MessageResponse, 0, len(ticket.Messages))
	for i := range ticket.Messages {
		msgs = append(msgs, messageResponse(&ticket.Messages[i]))
	}
	return dto.TicketDetailResponse{
		TicketSummary: ticketSummary(ticket),
		UserEmail:     ticket.RequesterEmail,
		ResolvedAt:    ticket.ResolvedAt,
		Messages:      msgs,
	}
}

func messageResponse(msg *domain.Message) dto.MessageResponse {
	attachments := make([]dto.AttachmentPayload, 0, len(msg.Attachments))
	for _, att := range msg.Attachments {
		attachments = append(attachments, dto.AttachmentPayload{
			Name:       att.Name,
			MimeType:   att.MimeType,
			StorageKey: att.StorageKey,
		})
	}
	return dto.MessageResponse{
		ID:          msg.ID,
		Sender:      msg.Sender,
		SenderName:  msg.SenderName,
		Body:        msg.Body,
		Attachments: attachments,
		Status:      msg.Status,
		Read:        msg.Read,
		CreatedAt:   msg.CreatedAt,
	}
}
