package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/policypal/internal/core/domain"
	"github.com/custodia-labs/policypal/internal/core/ports/driving"
)

func TestHandleHealth(t *testing.T) {
	ts := newTestServer()

	rr := ts.serve("GET", "/health", "", "", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestHandleVersion(t *testing.T) {
	ts := newTestServer()
	srv := NewServer(Config{Version: "1.2.3"}, Services{Auth: ts.auth}, nil)

	rr := newRecorder(srv, "GET", "/version")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"version":"1.2.3"}`, rr.Body.String())
}

func TestHandleReady(t *testing.T) {
	t.Run("all components up", func(t *testing.T) {
		ts := newTestServer()
		ts.checks = map[string]Pinger{
			"database": PingFunc(func(ctx context.Context) error { return nil }),
			"redis":    PingFunc(func(ctx context.Context) error { return nil }),
		}

		rr := ts.serve("GET", "/ready", "", "", nil)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp ReadyResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, "ready", resp.Status)
		assert.Equal(t, map[string]string{"database": "ok", "redis": "ok"}, resp.Components)
	})

	t.Run("component down", func(t *testing.T) {
		ts := newTestServer()
		ts.checks = map[string]Pinger{
			"database":  PingFunc(func(ctx context.Context) error { return nil }),
			"embedding": PingFunc(func(ctx context.Context) error { return errors.New("connection refused") }),
		}

		rr := ts.serve("GET", "/ready", "", "", nil)

		require.Equal(t, http.StatusServiceUnavailable, rr.Code)
		var resp ReadyResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, "unavailable", resp.Status)
		assert.Equal(t, "connection refused", resp.Components["embedding"])
		assert.Equal(t, "ok", resp.Components["database"])
	})

	t.Run("no checks", func(t *testing.T) {
		rr := newTestServer().serve("GET", "/ready", "", "", nil)
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestHandleSwaggerDoc_NotRegistered(t *testing.T) {
	rr := newTestServer().serve("GET", "/swagger/doc.json", "", "", nil)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandleLogin(t *testing.T) {
	ts := newTestServer()
	ts.auth.authenticateFn = func(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
		switch {
		case req.Email == "" || req.Password == "":
			return nil, domain.ErrInvalidInput
		case req.Email == "disabled@example.com":
			return nil, domain.ErrUnauthorized
		case req.Password != "password123":
			return nil, domain.ErrInvalidCredentials
		}
		return &domain.LoginResponse{
			Token:        "jwt",
			RefreshToken: "refresh",
			ExpiresAt:    time.Now().Add(time.Hour),
			User:         &domain.UserSummary{ID: "user-1", Email: req.Email},
		}, nil
	}

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantError  string
	}{
		{"valid", domain.LoginRequest{Email: "a@example.com", Password: "password123"}, http.StatusOK, ""},
		{"missing fields", domain.LoginRequest{Email: "a@example.com"}, http.StatusBadRequest, "email and password are required"},
		{"wrong password", domain.LoginRequest{Email: "a@example.com", Password: "nope"}, http.StatusUnauthorized, "invalid credentials"},
		{"disabled", domain.LoginRequest{Email: "disabled@example.com", Password: "password123"}, http.StatusUnauthorized, "account disabled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.serveJSON("POST", "/api/v1/auth/login", "", tt.body)

			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, decodeError(t, rr).Error)
				return
			}
			var resp domain.LoginResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.Equal(t, "jwt", resp.Token)
			assert.Equal(t, "refresh", resp.RefreshToken)
		})
	}
}

func TestHandleLogin_InvalidBody(t *testing.T) {
	rr := newTestServer().serve("POST", "/api/v1/auth/login", "", "application/json", stringReader("{not json"))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid request body", decodeError(t, rr).Error)
}

func TestHandleRefresh(t *testing.T) {
	ts := newTestServer()
	ts.auth.refreshTokenFn = func(ctx context.Context, req domain.RefreshRequest) (*domain.LoginResponse, error) {
		if req.RefreshToken != "good" {
			return nil, domain.ErrTokenInvalid
		}
		return &domain.LoginResponse{Token: "new-jwt", RefreshToken: "new-refresh"}, nil
	}

	rr := ts.serveJSON("POST", "/api/v1/auth/refresh", "", domain.RefreshRequest{RefreshToken: "good"})
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = ts.serveJSON("POST", "/api/v1/auth/refresh", "", domain.RefreshRequest{RefreshToken: "bad"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "invalid refresh token", decodeError(t, rr).Error)
}

func TestHandleLogout(t *testing.T) {
	ts := newTestServer()
	var revoked string
	ts.auth.logoutFn = func(ctx context.Context, token string) error {
		revoked = token
		return nil
	}

	rr := ts.serve("POST", "/api/v1/auth/logout", "member-token", "", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "member-token", revoked)

	rr = ts.serve("POST", "/api/v1/auth/logout", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandleSetup(t *testing.T) {
	ts := newTestServer()
	done := false
	ts.users.setupFn = func(ctx context.Context, req driving.SetupRequest) (*driving.SetupResponse, error) {
		if req.Email == "" {
			return nil, domain.ErrInvalidInput
		}
		if done {
			return nil, domain.ErrForbidden
		}
		done = true
		return &driving.SetupResponse{
			User:    &domain.UserSummary{ID: "admin-1", Email: req.Email, Role: domain.RoleAdmin},
			Message: "Admin user created successfully",
		}, nil
	}

	rr := ts.serveJSON("POST", "/api/v1/setup", "", driving.SetupRequest{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.serveJSON("POST", "/api/v1/setup", "", driving.SetupRequest{Email: "admin@example.com", Password: "pw", Name: "Admin"})
	assert.Equal(t, http.StatusCreated, rr.Code)

	rr = ts.serveJSON("POST", "/api/v1/setup", "", driving.SetupRequest{Email: "admin@example.com", Password: "pw", Name: "Admin"})
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "setup already complete", decodeError(t, rr).Error)
}

func TestHandleGetMe(t *testing.T) {
	ts := newTestServer()
	ts.users.getFn = func(ctx context.Context, id string) (*domain.User, error) {
		if id != "member-1" {
			return nil, domain.ErrNotFound
		}
		return &domain.User{ID: id, Email: "member@example.com", PasswordHash: "secret", Role: domain.RoleMember}, nil
	}

	rr := ts.serve("GET", "/api/v1/me", "member-token", "", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "secret")
	var summary domain.UserSummary
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&summary))
	assert.Equal(t, "member-1", summary.ID)

	rr = ts.serve("GET", "/api/v1/me", "admin-token", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUserManagement_AdminOnly(t *testing.T) {
	ts := newTestServer()
	ts.users.listFn = func(ctx context.Context) ([]*domain.User, error) {
		return []*domain.User{{ID: "admin-1"}, {ID: "member-1"}}, nil
	}

	rr := ts.serve("GET", "/api/v1/users", "member-token", "", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = ts.serve("GET", "/api/v1/users", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.serve("GET", "/api/v1/users", "admin-token", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var users []domain.UserSummary
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&users))
	assert.Len(t, users, 2)
}

func TestHandleCreateUser(t *testing.T) {
	ts := newTestServer()
	ts.users.createFn = func(ctx context.Context, req driving.CreateUserRequest) (*domain.User, error) {
		if req.Email == "taken@example.com" {
			return nil, domain.ErrAlreadyExists
		}
		return &domain.User{ID: "user-9", Email: req.Email, Role: req.Role}, nil
	}

	rr := ts.serveJSON("POST", "/api/v1/users", "admin-token", driving.CreateUserRequest{Email: "new@example.com", Password: "pw", Name: "New", Role: domain.RoleMember})
	assert.Equal(t, http.StatusCreated, rr.Code)

	rr = ts.serveJSON("POST", "/api/v1/users", "admin-token", driving.CreateUserRequest{Email: "taken@example.com", Password: "pw", Name: "New", Role: domain.RoleMember})
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestHandleDeleteUser(t *testing.T) {
	ts := newTestServer()
	ts.users.deleteFn = func(ctx context.Context, id string) error {
		if id == "user-1" {
			return nil
		}
		return domain.ErrNotFound
	}

	rr := ts.serve("DELETE", "/api/v1/users/user-1", "admin-token", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = ts.serve("DELETE", "/api/v1/users/missing", "admin-token", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandleStatus(t *testing.T) {
	ts := newTestServer()
	ts.runtime.SetEmbedding("text-embedding-3-small")
	ts.runtime.SetGeneration("local", true)

	rr := ts.serve("GET", "/api/v1/status", "member-token", "", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	var status domain.Status
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&status))
	assert.Equal(t, "text-embedding-3-small", status.EmbeddingModel)
	assert.Equal(t, "local", status.GenerationBackend)
	assert.True(t, status.FallbackActive)
	assert.Equal(t, "memory", status.StorageBackend)
}
