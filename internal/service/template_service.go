package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cliphub/support-service/internal/domain"
	"github.com/cliphub/support-service/internal/events"
	"github.com/cliphub/support-service/internal/repository"
	apperrors "github.com/cliphub/support-service/pkg/util"
)

var placeholderPattern = regexp.MustCompile(`\{\{([a-zA-Z0-9_]+)\}\}`)

// TemplateService manages canned responses. Writes are announced on the
// change feed so the widget-facing template document stays in sync.
type TemplateService struct {
	templates  repository.TemplateRepository
	dispatcher events.Dispatcher
}

// TemplateInput describes a create/update payload. An empty ID creates a
// new template; a known ID replaces it (upsert).
type TemplateInput struct {
	ID        string
	Name      string
	Body      string
	Category  string
	Shortcuts []string
}

// NewTemplateService constructs the service.
func NewTemplateService(templates repository.TemplateRepository, dispatcher events.Dispatcher) *TemplateService {
	return &TemplateService{templates: templates, dispatcher: dispatcher}
}

// Save upserts a template. Expected variables are derived from the body's
// {{placeholder}} markers.
func (s *TemplateService) Save(ctx context.Context, input TemplateInput) (*domain.ResponseTemplate, error) {
	name := strings.TrimSpace(input.Name)
	body := strings.TrimSpace(input.Body)
	if name == "" || body == "" {
		return nil, apperrors.NewValidationError("name and body required", nil)
	}
	id := strings.TrimSpace(input.ID)
	if id == "" {
		id = uuid.NewString()
	}

	tpl := &domain.ResponseTemplate{
		ID:        id,
		Name:      name,
		Body:      body,
		Category:  strings.TrimSpace(input.Category),
		Shortcuts: input.Shortcuts,
		Variables: ExtractVariables(body),
	}
	if err := s.templates.Upsert(ctx, tpl); err != nil {
		return nil, apperrors.MapError(err)
	}
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:    events.EventTemplateSaved,
		Payload: events.TemplateChangedPayload{TemplateID: tpl.ID, Name: tpl.Name},
	})
	return tpl, nil
}

// Get fetches a template by id.
func (s *TemplateService) Get(ctx context.Context, id string) (*domain.ResponseTemplate, error) {
	tpl, err := s.templates.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("template", map[string]any{"template_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return tpl, nil
}

// List returns all templates ordered by name.
func (s *TemplateService) List(ctx context.Context) ([]domain.ResponseTemplate, error) {
	templates, err := s.templates.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return templates, nil
}

// Delete removes a template by id.
func (s *TemplateService) Delete(ctx context.Context, id string) error {
	if err := s.templates.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("template", map[string]any{"template_id": id})
		}
		return apperrors.MapError(err)
	}
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:    events.EventTemplateDeleted,
		Payload: events.TemplateChangedPayload{TemplateID: id},
	})
	return nil
}

// Render substitutes {{variable}} placeholders in the template body with
// the supplied values. Placeholders without a value are left intact so the
// agent can spot them before sending.
func (s *TemplateService) Render(ctx context.Context, id string, values map[string]string) (string, error) {
	tpl, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return RenderTemplate(tpl.Body, values), nil
}

// RenderTemplate substitutes placeholders in body.
func RenderTemplate(body string, values map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(body, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		if value, ok := values[name]; ok {
			return value
		}
		return match
	})
}

// ExtractVariables lists the distinct placeholder names in body, in order
// of first appearance.
func ExtractVariables(body string) []string {
	seen := make(map[string]struct{})
	variables := []string{}
	for _, match := range placeholderPattern.FindAllStringSubmatch(body, -1) {
		name := match[1]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		variables = append(variables, name)
	}
	return variables
}
