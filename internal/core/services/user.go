package services

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/policypal/internal/core/domain"
	"github.com/custodia-labs/policypal/internal/core/ports/driven"
	"github.com/custodia-labs/policypal/internal/core/ports/driving"
)

var _ driving.UserService = (*userService)(nil)

// UserConfig wires the user service. Every account it manages belongs to
// TeamID.
type UserConfig struct {
	Users    driven.UserStore
	Sessions driven.SessionStore
	Tokens   driven.AuthAdapter
	TeamID   string
	Logger   *slog.Logger
}

type userService struct {
	users    driven.UserStore
	sessions driven.SessionStore
	tokens   driven.AuthAdapter
	teamID   string
	logger   *slog.Logger
}

// NewUserService creates the team-scoped UserService
func NewUserService(cfg UserConfig) driving.UserService {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &userService{
		users:    cfg.Users,
		sessions: cfg.Sessions,
		tokens:   cfg.Tokens,
		teamID:   cfg.TeamID,
		logger:   cfg.Logger,
	}
}

// Setup creates the first admin. It is refused once any account exists.
func (s *userService) Setup(ctx context.Context, req driving.SetupRequest) (*driving.SetupResponse, error) {
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return nil, domain.ErrInvalidInput
	}

	existing, err := s.users.List(ctx, s.teamID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, domain.ErrForbidden
	}

	admin, err := s.Create(ctx, driving.CreateUserRequest{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     domain.RoleAdmin,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("initial admin created", "user_id", admin.ID, "team_id", s.teamID)
	return &driving.SetupResponse{
		User:    admin.ToSummary(),
		Message: "Setup complete. You can now log in.",
	}, nil
}

// Create adds an account to the team. Emails are unique regardless of case.
func (s *userService) Create(ctx context.Context, req driving.CreateUserRequest) (*domain.User, error) {
	email := normalizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)
	if !validEmail(email) || req.Password == "" || name == "" || !req.Role.IsValid() {
		return nil, domain.ErrInvalidInput
	}

	if found, err := s.users.GetByEmail(ctx, email); err == nil && found != nil {
		return nil, domain.ErrAlreadyExists
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := s.tokens.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Role:         req.Role,
		TeamID:       s.teamID,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Get returns a team member. Accounts of other teams read as not found.
func (s *userService) Get(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.TeamID != s.teamID {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

// List returns every account in the team
func (s *userService) List(ctx context.Context) ([]*domain.User, error) {
	return s.users.List(ctx, s.teamID)
}

// Delete removes an account after revoking its sessions
func (s *userService) Delete(ctx context.Context, id string) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.sessions.DeleteByUser(ctx, user.ID); err != nil {
		s.logger.Warn("failed to revoke sessions", "user_id", user.ID, "error", err)
	}
	if err := s.users.Delete(ctx, user.ID); err != nil {
		return err
	}

	s.logger.Info("user deleted", "user_id", user.ID)
	return nil
}

// validEmail accepts a bare address such as "name@example.com"
func validEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
