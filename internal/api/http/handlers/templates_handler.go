package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/cliphub/support-service/internal/api/dto"
	"github.com/cliphub/support-service/internal/domain"
	"github.com/cliphub/support-service/internal/service"
	apperrors "github.com/cliphub/support-service/pkg/util"
)

// TemplatesHandler manages canned response endpoints.
type TemplatesHandler struct {
	service *service.TemplateService
}

// NewTemplatesHandler constructs handler.
func NewTemplatesHandler(templateService *service.TemplateService) *TemplatesHandler {
	return &TemplatesHandler{service: templateService}
}

// List GET /admin/templates.
func (h *TemplatesHandler) List(c *fiber.Ctx) error {
	templates, err := h.service.List(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.TemplateResponse, 0, len(templates))
	for i := range templates {
		items = append(items, templateResponse(&templates[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /admin/templates/:id.
func (h *TemplatesHandler) Get(c *fiber.Ctx) error {
	tpl, err := h.service.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": templateResponse(tpl)})
}

// Save POST /admin/templates.
func (h *TemplatesHandler) Save(c *fiber.Ctx) error {
	var req dto.SaveTemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	tpl, err := h.service.Save(c.Context(), service.TemplateInput{
		ID:        req.ID,
		Name:      req.Name,
		Body:      req.Body,
		Category:  req.Category,
		Shortcuts: req.Shortcuts,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": templateResponse(tpl)})
}

// Delete DELETE /admin/templates/:id.
func (h *TemplatesHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "deleted"}})
}

// Render POST /admin/templates/:id/render.
func (h *TemplatesHandler) Render(c *fiber.Ctx) error {
	var req dto.RenderTemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	body, err := h.service.Render(c.Context(), c.Params("id"), req.Values)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.RenderedTemplateResponse{Body: body}})
}

func templateResponse(tpl *domain.ResponseTemplate) dto.TemplateResponse {
	return dto.TemplateResponse{
		ID:        tpl.ID,
		Name:      tpl.Name,
		Body:      tpl.Body,
		Category:  tpl.Category,
		Shortcuts: tpl.Shortcuts,
		Variables: tpl.Variables,
		CreatedAt: tpl.CreatedAt,
		UpdatedAt: tpl.UpdatedAt,
	}
}
