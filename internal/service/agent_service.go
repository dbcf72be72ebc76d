package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/cliphub/support-service/internal/auth"
	"github.com/cliphub/support-service/internal/config"
	"github.com/cliphub/support-service/internal/domain"
	"github.com/cliphub/support-service/internal/repository"
	apperrors "github.com/cliphub/support-service/pkg/util"
)

// AgentService manages the support agent roster. Roster mutations are
// admin-only; the roster itself is consumed read-only by assignment and
// statistics.
type AgentService struct {
	agents repository.AgentRepository
	cfg    config.AuthConfig
}

// NewAgentService constructs the service.
func NewAgentService(cfg config.Config, agents repository.AgentRepository) *AgentService {
	return &AgentService{agents: agents, cfg: cfg.Auth}
}

func requireAdmin(actor *domain.Agent) error {
	if actor == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	if actor.Role != domain.AgentRoleAdmin {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}

// CreateAgent adds a roster entry.
func (s *AgentService) CreateAgent(ctx context.Context, actor *domain.Agent, name, email, password string, role domain.AgentRole, specialty string) (*domain.Agent, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || password == "" {
		return nil, apperrors.NewValidationError("name, email, password required", nil)
	}
	if role != domain.AgentRoleAgent && role != domain.AgentRoleAdmin {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": role})
	}
	if _, err := s.agents.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	agent := &domain.Agent{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Specialty:    strings.TrimSpace(specialty),
		Active:       true,
	}
	if err := s.agents.Create(ctx, agent); err != nil {
		return nil, apperrors.MapError(err)
	}
	return agent, nil
}

// UpdateAgent updates roster metadata and active flag.
func (s *AgentService) UpdateAgent(ctx context.Context, actor *domain.Agent, agentID, name, specialty string, role domain.AgentRole, active bool) (*domain.Agent, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	agent, err := s.agents.GetByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("agent", map[string]any{"agent_id": agentID})
		}
		return nil, apperrors.MapError(err)
	}
	if name = strings.TrimSpace(name); name != "" {
		agent.Name = name
	}
	agent.Specialty = strings.TrimSpace(specialty)
	if role == domain.AgentRoleAgent || role == domain.AgentRoleAdmin {
		agent.Role = role
	}
	agent.Active = active
	if err := s.agents.Update(ctx, agent); err != nil {
		return nil, apperrors.MapError(err)
	}
	return agent, nil
}

// ListAgents returns the roster. Non-admin agents see active entries only.
func (s *AgentService) ListAgents(ctx context.Context, actor *domain.Agent) ([]domain.Agent, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	filter := repository.AgentFilter{}
	if actor.Role != domain.AgentRoleAdmin {
		active := true
		filter.Active = &active
	}
	agents, err := s.agents.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return agents, nil
}
