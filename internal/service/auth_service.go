package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cliphub/support-service/internal/auth"
	"github.com/cliphub/support-service/internal/config"
	"github.com/cliphub/support-service/internal/domain"
	"github.com/cliphub/support-service/internal/repository"
	apperrors "github.com/cliphub/support-service/pkg/util"
)

// AuthService handles registration, login and password flows for both
// marketplace accounts and support agents.
type AuthService struct {
	users  repository.UserRepository
	agents repository.AgentRepository
	resets repository.PasswordResetRepository
	tokens *auth.TokenManager
	cfg    config.AuthConfig
}

// AuthDependencies bundles repositories for auth service.
type AuthDependencies struct {
	UserRepo          repository.UserRepository
	AgentRepo         repository.AgentRepository
	PasswordResetRepo repository.PasswordResetRepository
}

// NewAuthService constructs the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:  deps.UserRepo,
		agents: deps.AgentRepo,
		resets: deps.PasswordResetRepo,
		tokens: auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		cfg:    cfg.Auth,
	}
}

// RegisterUser creates a marketplace account (clipper or advertiser) and
// issues a token.
func (s *AuthService) RegisterUser(ctx context.Context, name, email, password string, role domain.RequesterRole) (*domain.User, string, time.Time, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || password == "" {
		return nil, "", time.Time{}, apperrors.NewValidationError("name, email, password required", nil)
	}
	if role != domain.RequesterRoleClipper && role != domain.RequesterRoleAdvertiser {
		return nil, "", time.Time{}, apperrors.NewValidationError("role must be clipper or advertiser", map[string]any{"role": role})
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Status:       domain.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	token, expiresAt, err := s.tokens.GenerateToken(user.ID, domain.SubjectTypeUser, nil)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	return user, token, expiresAt, nil
}

// LoginUser authenticates a marketplace account.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", time.Time{}, invalidCredentials(err)
	}
	if user.Status != domain.UserStatusActive {
		return nil, "", time.Time{}, apperrors.NewForbidden("account suspended")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, expiresAt, err := s.tokens.GenerateToken(user.ID, domain.SubjectTypeUser, nil)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	return user, token, expiresAt, nil
}

// LoginAgent authenticates a support agent.
func (s *AuthService) LoginAgent(ctx context.Context, email, password string) (*domain.Agent, string, time.Time, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	agent, err := s.agents.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", time.Time{}, invalidCredentials(err)
	}
	if !agent.Active {
		return nil, "", time.Time{}, apperrors.NewForbidden("agent deactivated")
	}
	if err := auth.ComparePassword(agent.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, expiresAt, err := s.tokens.GenerateToken(agent.ID, domain.SubjectTypeAgent, &agent.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	return agent, token, expiresAt, nil
}

// RequestPasswordReset issues a single-use reset token for the account
// matching the email, user or agent. The caller learns nothing about
// whether the email exists.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (*repository.PasswordResetToken, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var (
		subjectType domain.SubjectType
		subjectID   string
	)
	if user, err := s.users.GetByEmail(ctx, email); err == nil {
		subjectType = domain.SubjectTypeUser
		subjectID = user.ID
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	} else if agent, err := s.agents.GetByEmail(ctx, email); err == nil {
		subjectType = domain.SubjectTypeAgent
		subjectID = agent.ID
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	} else {
		return nil, nil
	}

	token := &repository.PasswordResetToken{
		SubjectType: subjectType,
		SubjectID:   subjectID,
		Token:       uuid.NewString(),
		ExpiresAt:   time.Now().Add(time.Duration(s.cfg.PasswordResetTTLMinutes) * time.Minute),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return nil, apperrors.MapError(err)
	}
	return token, nil
}

// ConfirmPasswordReset consumes a reset token and sets the new password.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	if newPassword == "" {
		return apperrors.NewValidationError("new password required", nil)
	}
	token, err := s.resets.GetByToken(ctx, tokenStr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("invalid reset token")
		}
		return apperrors.MapError(err)
	}
	if token.UsedAt != nil || time.Now().After(token.ExpiresAt) {
		return apperrors.NewUnauthorized("reset token expired")
	}

	hash, err := auth.HashPassword(newPassword, s.cfg.BcryptCost)
	if err != nil {
		return apperrors.MapError(err)
	}

	switch token.SubjectType {
	case domain.SubjectTypeUser:
		user, err := s.users.GetByID(ctx, token.SubjectID)
		if err != nil {
			return apperrors.MapError(err)
		}
		user.PasswordHash = hash
		if err := s.users.Update(ctx, user); err != nil {
			return apperrors.MapError(err)
		}
	case domain.SubjectTypeAgent:
		agent, err := s.agents.GetByID(ctx, token.SubjectID)
		if err != nil {
			return apperrors.MapError(err)
		}
		agent.PasswordHash = hash
		if err := s.agents.Update(ctx, agent); err != nil {
			return apperrors.MapError(err)
		}
	default:
		return apperrors.NewUnauthorized("invalid reset token")
	}

	return apperrors.MapError(s.resets.MarkUsed(ctx, token.ID))
}

// ChangePassword verifies the current password and replaces it.
func (s *AuthService) ChangePassword(ctx context.Context, principal *auth.Principal, currentPassword, newPassword string) error {
	if principal == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if newPassword == "" {
		return apperrors.NewValidationError("new password required", nil)
	}

	hash, err := auth.HashPassword(newPassword, s.cfg.BcryptCost)
	if err != nil {
		return apperrors.MapError(err)
	}

	switch {
	case principal.User != nil:
		if err := auth.ComparePassword(principal.User.PasswordHash, currentPassword); err != nil {
			return apperrors.NewUnauthorized("invalid credentials")
		}
		principal.User.PasswordHash = hash
		return apperrors.MapError(s.users.Update(ctx, principal.User))
	case principal.Agent != nil:
		if err := auth.ComparePassword(principal.Agent.PasswordHash, currentPassword); err != nil {
			return apperrors.NewUnauthorized("invalid credentials")
		}
		principal.Agent.PasswordHash = hash
		return apperrors.MapError(s.agents.Update(ctx, principal.Agent))
	}
	return apperrors.NewUnauthorized("authentication required")
}

// TokenManager exposes the token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

func invalidCredentials(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewUnauthorized("invalid credentials")
	}
	return apperrors.MapError(err)
}
