package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cliphub/support-service/internal/service"
)

// StatsHandler serves the support overview dashboard data.
type StatsHandler struct {
	service *service.AdminService
}

// NewStatsHandler constructs handler.
func NewStatsHandler(adminService *service.AdminService) *StatsHandler {
	return &StatsHandler{service: adminService}
}

// Overview GET /admin/stats.
func (h *StatsHandler) Overview(c *fiber.Ctx) error {
	overview, err := h.service.Stats(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": overview})
}
