package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/cliphub/support-service/internal/api/dto"
	"github.com/cliphub/support-service/internal/domain"
	"github.com/cliphub/support-service/internal/service"
	apperrors "github.com/cliphub/support-service/pkg/util"
)

// AgentsHandler manages the support agent roster.
type AgentsHandler struct {
	service *service.AgentService
}

// NewAgentsHandler constructs handler.
func NewAgentsHandler(agentService *service.AgentService) *AgentsHandler {
	return &AgentsHandler{service: agentService}
}

// List GET /admin/agents.
func (h *AgentsHandler) List(c *fiber.Ctx) error {
	agents, err := h.service.ListAgents(c.Context(), requireAgent(c))
	if err != nil {
		return err
	}
	items := make([]dto.AgentResponse, 0, len(agents))
	for i := range agents {
		items = append(items, *agentResponse(&agents[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Create POST /admin/agents.
func (h *AgentsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateAgentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	agent, err := h.service.CreateAgent(c.Context(), requireAgent(c), req.Name, req.Email, req.Password, domain.AgentRole(req.Role), req.Specialty)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": agentResponse(agent)})
}

// Update PATCH /admin/agents/:id.
func (h *AgentsHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateAgentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	agent, err := h.service.UpdateAgent(c.Context(), requireAgent(c), c.Params("id"), req.Name, req.Specialty, domain.AgentRole(req.Role), req.Active)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": agentResponse(agent)})
}
