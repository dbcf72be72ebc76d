package handlers

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/cliphub/support-service/internal/api/dto"
	"github.com/cliphub/support-service/internal/auth"
	"github.com/cliphub/support-service/internal/domain"
	"github.com/cliphub/support-service/internal/service"
	apperrors "github.com/cliphub/support-service/pkg/util"
)

// AdminTicketsHandler manages the support-team ticket endpoints.
type AdminTicketsHandler struct {
	service *service.AdminService
}

// NewAdminTicketsHandler constructs handler.
func NewAdminTicketsHandler(adminService *service.AdminService) *AdminTicketsHandler {
	return &AdminTicketsHandler{service: adminService}
}

// ListTickets GET /admin/tickets.
func (h *AdminTicketsHandler) ListTickets(c *fiber.Ctx) error {
	tickets, err := h.service.ListTickets(c.Context(), parseAdminTicketQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.AdminTicketDetailResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, adminTicketDetail(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /admin/tickets/:id.
func (h *AdminTicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.GetTicket(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": adminTicketDetail(ticket)})
}

// Reply POST /admin/tickets/:id/reply.
func (h *AdminTicketsHandler) Reply(c *fiber.Ctx) error {
	agent := requireAgent(c)
	var req dto.ReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	ticket, err := h.service.Reply(c.Context(), agent, c.Params("id"), req.Body, attachmentInputs(req.Attachments))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": adminTicketDetail(ticket)})
}

// UpdateStatus PATCH /admin/tickets/:id/status.
func (h *AdminTicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	agent := requireAgent(c)
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	ticket, err := h.service.UpdateStatus(c.Context(), agent, c.Params("id"), domain.TicketStatus(req.Status), req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": adminTicketDetail(ticket)})
}

// UpdatePriority PATCH /admin/tickets/:id/priority.
func (h *AdminTicketsHandler) UpdatePriority(c *fiber.Ctx) error {
	agent := requireAgent(c)
	var req dto.UpdatePriorityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	ticket, err := h.service.UpdatePriority(c.Context(), agent, c.Params("id"), domain.TicketPriority(req.Priority))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": adminTicketDetail(ticket)})
}

// Assign PATCH /admin/tickets/:id/assign.
func (h *AdminTicketsHandler) Assign(c *fiber.Ctx) error {
	agent := requireAgent(c)
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.Assign(c.Context(), agent, c.Params("id"), req.Agent)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": adminTicketDetail(ticket)})
}

// AddTag POST /admin/tickets/:id/tags.
func (h *AdminTicketsHandler) AddTag(c *fiber.Ctx) error {
	agent := requireAgent(c)
	var req dto.TagRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	ticket, err := h.service.AddTag(c.Context(), agent, c.Params("id"), req.Tag)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": adminTicketDetail(ticket)})
}

// RemoveTag DELETE /admin/tickets/:id/tags/:tag.
func (h *AdminTicketsHandler) RemoveTag(c *fiber.Ctx) error {
	agent := requireAgent(c)
	ticket, err := h.service.RemoveTag(c.Context(), agent, c.Params("id"), c.Params("tag"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": adminTicketDetail(ticket)})
}

// AddNote POST /admin/tickets/:id/notes.
func (h *AdminTicketsHandler) AddNote(c *fiber.Ctx) error {
	agent := requireAgent(c)
	var req dto.NoteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	ticket, err := h.service.AddInternalNote(c.Context(), agent, c.Params("id"), req.Note)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": adminTicketDetail(ticket)})
}

// BulkUpdateStatus POST /admin/tickets/bulk/status.
func (h *AdminTicketsHandler) BulkUpdateStatus(c *fiber.Ctx) error {
	agent := requireAgent(c)
	var req dto.BulkStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	result := h.service.BulkUpdateStatus(c.Context(), agent, req.TicketIDs, domain.TicketStatus(req.Status), req.Comment)
	return c.JSON(fiber.Map{"data": result})
}

// BulkAssign POST /admin/tickets/bulk/assign.
func (h *AdminTicketsHandler) BulkAssign(c *fiber.Ctx) error {
	agent := requireAgent(c)
	var req dto.BulkAssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	result, err := h.service.BulkAssign(c.Context(), agent, req.TicketIDs, req.Agent)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}

// DeleteTicket DELETE /admin/tickets/:id.
func (h *AdminTicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	agent := requireAgent(c)
	if err := h.service.Delete(c.Context(), agent, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "deleted"}})
}

// ExportCSV GET /admin/tickets/export. The current filter applies.
func (h *AdminTicketsHandler) ExportCSV(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if _, err := h.service.ExportCSV(c.Context(), parseAdminTicketQuery(c), &buf); err != nil {
		return err
	}
	filename := fmt.Sprintf("tickets-%s.csv", time.Now().UTC().Format("2006-01-02"))
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(buf.Bytes())
}

// History GET /admin/tickets/:id/history.
func (h *AdminTicketsHandler) History(c *fiber.Ctx) error {
	limit := parseInt(c.Query("limit"), 50)
	page := parseInt(c.Query("page"), 1)
	entries, err := h.service.History(c.Context(), c.Params("id"), limit, (page-1)*limit)
	if err != nil {
		return err
	}
	items := make([]dto.TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.TicketHistoryResponse{
			ID:            entry.ID,
			ChangeType:    entry.ChangeType,
			ChangedByType: entry.ChangedByType,
			ChangedByID:   entry.ChangedByID,
			OldValue:      entry.OldValue,
			NewValue:      entry.NewValue,
			CreatedAt:     entry.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

func requireAgent(c *fiber.Ctx) *domain.Agent {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil
	}
	return principal.Agent
}

func parseAdminTicketQuery(c *fiber.Ctx) service.TicketFilter {
	filter := service.TicketFilter{Search: strings.TrimSpace(c.Query("search"))}
	if val := c.Query("status"); val != "" {
		status := domain.TicketStatus(val)
		filter.Status = &status
	}
	if val := c.Query("priority"); val != "" {
		priority := domain.TicketPriority(val)
		filter.Priority = &priority
	}
	if val := c.Query("role"); val != "" {
		role := domain.RequesterRole(val)
		filter.Role = &role
	}
	if val := c.Query("category"); val != "" {
		filter.Category = &val
	}
	if val := c.Query("assigned_to"); val != "" {
		filter.AssignedTo = &val
	}
	if from := parseTime(c.Query("created_from")); from != nil {
		filter.CreatedFrom = from
	}
	if to := parseTime(c.Query("created_to")); to != nil {
		filter.CreatedTo = to
	}
	if tags := c.Query("tags"); tags != "" {
		for _, part := range strings.Split(tags, ",") {
			if part = strings.TrimSpace(part); part != "" {
				filter.Tags = append(filter.Tags, part)
			}
		}
	}
	return filter
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func adminTicketDetail(ticket *domain.Ticket) dto.AdminTicketDetailResponse {
	return dto.AdminTicketDetailResponse{
		TicketDetailResponse: ticketDetail(ticket),
		InternalNotes:        ticket.InternalNotes,
	}
}
