package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/policypal/internal/core/domain"
	"github.com/custodia-labs/policypal/internal/core/ports/driven"
	"github.com/custodia-labs/policypal/internal/core/ports/driving"
)

var _ driving.AuthService = (*authService)(nil)

// DefaultTokenTTL is the lifetime of a session and its bearer token
const DefaultTokenTTL = 24 * time.Hour

// AuthConfig wires the auth service
type AuthConfig struct {
	Users    driven.UserStore
	Sessions driven.SessionStore
	Tokens   driven.AuthAdapter
	TokenTTL time.Duration // Non-positive uses DefaultTokenTTL
	Logger   *slog.Logger
}

// authService issues bearer tokens backed by a stored session. A token is
// valid only while its session exists, so logout and refresh revoke it.
type authService struct {
	users    driven.UserStore
	sessions driven.SessionStore
	tokens   driven.AuthAdapter
	ttl      time.Duration
	logger   *slog.Logger
}

// NewAuthService creates the session-backed AuthService
func NewAuthService(cfg AuthConfig) driving.AuthService {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &authService{
		users:    cfg.Users,
		sessions: cfg.Sessions,
		tokens:   cfg.Tokens,
		ttl:      cfg.TokenTTL,
		logger:   cfg.Logger,
	}
}

// Authenticate checks credentials and opens a session. The password is
// verified before the active flag so a wrong password never reveals that an
// account is disabled.
func (s *authService) Authenticate(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, domain.ErrInvalidInput
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil || !s.tokens.VerifyPassword(req.Password, user.PasswordHash) {
		s.logger.Info("login rejected", "email", email)
		return nil, domain.ErrInvalidCredentials
	}
	if !user.Active {
		s.logger.Info("login rejected for disabled account", "user_id", user.ID)
		return nil, domain.ErrUnauthorized
	}

	resp, err := s.openSession(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("failed to record last login", "user_id", user.ID, "error", err)
	}
	return resp, nil
}

// ValidateToken resolves a bearer token to the caller's auth context
func (s *authService) ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error) {
	if token == "" {
		return nil, domain.ErrTokenInvalid
	}

	claims, err := s.tokens.ParseToken(token)
	switch {
	case errors.Is(err, domain.ErrTokenExpired):
		return nil, domain.ErrTokenExpired
	case err != nil:
		return nil, domain.ErrTokenInvalid
	case time.Now().After(claims.ExpiresAt):
		return nil, domain.ErrTokenExpired
	}

	session, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		return nil, domain.ErrSessionNotFound
	}
	if session.IsExpired() {
		return nil, domain.ErrTokenExpired
	}

	return &domain.AuthContext{
		UserID:    claims.UserID,
		Email:     claims.Email,
		Role:      claims.Role,
		TeamID:    claims.TeamID,
		SessionID: claims.SessionID,
	}, nil
}

// RefreshToken trades a refresh token for a new session. The old session is
// deleted, so each refresh token works once.
func (s *authService) RefreshToken(ctx context.Context, req domain.RefreshRequest) (*domain.LoginResponse, error) {
	if req.RefreshToken == "" {
		return nil, domain.ErrTokenInvalid
	}

	old, err := s.sessions.GetByRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}
	if old.IsExpired() {
		return nil, domain.ErrTokenExpired
	}

	user, err := s.users.Get(ctx, old.UserID)
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, domain.ErrUnauthorized
	}

	if err := s.sessions.Delete(ctx, old.ID); err != nil {
		return nil, err
	}
	return s.openSession(ctx, user)
}

// Logout revokes the session behind a token. Unknown or malformed tokens
// are already unusable and are ignored.
func (s *authService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		return nil
	}
	return s.sessions.Delete(ctx, claims.SessionID)
}

func (s *authService) openSession(ctx context.Context, user *domain.User) (*domain.LoginResponse, error) {
	issuedAt := time.Now()
	session := &domain.Session{
		ID:           uuid.New().String(),
		UserID:       user.ID,
		RefreshToken: generateRefreshToken(),
		ExpiresAt:    issuedAt.Add(s.ttl),
		CreatedAt:    issuedAt,
	}

	token, err := s.tokens.GenerateToken(&domain.TokenClaims{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		TeamID:    user.TeamID,
		SessionID: session.ID,
		IssuedAt:  issuedAt,
		ExpiresAt: session.ExpiresAt,
	})
	if err != nil {
		return nil, err
	}
	session.Token = token

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	return &domain.LoginResponse{
		Token:        token,
		RefreshToken: session.RefreshToken,
		ExpiresAt:    session.ExpiresAt,
		User:         user.ToSummary(),
	}, nil
}

// generateRefreshToken returns 32 random bytes, base64url encoded
func generateRefreshToken() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// normalizeEmail is the form emails are stored and looked up in
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
