package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/custodia-labs/policypal/internal/core/domain"
)

func testClaims(now time.Time, ttl time.Duration) *domain.TokenClaims {
	return &domain.TokenClaims{
		UserID:    "user-123",
		Email:     "test@example.com",
		Role:      domain.RoleMember,
		TeamID:    "team-456",
		SessionID: "session-789",
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
}

func TestNewAdapter(t *testing.T) {
	adapter := NewAdapter("test-secret")
	if string(adapter.jwtSecret) != "test-secret" {
		t.Error("expected jwt secret to be set")
	}
}

func TestNewAdapterWithCost(t *testing.T) {
	adapter := NewAdapterWithCost("test-secret", 4)
	if adapter.bcryptCost != 4 {
		t.Errorf("expected bcrypt cost 4, got %d", adapter.bcryptCost)
	}
}

func TestHashPassword(t *testing.T) {
	adapter := NewAdapterWithCost("secret", 4) // Low cost for faster tests

	hash, err := adapter.HashPassword("mypassword")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	if hash == "mypassword" {
		t.Error("hash should not equal plaintext password")
	}
	if len(hash) < 60 {
		t.Error("expected bcrypt hash to be at least 60 characters")
	}

	other, _ := adapter.HashPassword("mypassword")
	if hash == other {
		t.Error("expected different hashes for same password (due to salt)")
	}
}

func TestVerifyPassword(t *testing.T) {
	adapter := NewAdapterWithCost("secret", 4)
	hash, _ := adapter.HashPassword("correctpassword")

	if !adapter.VerifyPassword("correctpassword", hash) {
		t.Error("expected password verification to succeed")
	}
	if adapter.VerifyPassword("wrongpassword", hash) {
		t.Error("expected password verification to fail for wrong password")
	}
	if adapter.VerifyPassword("password", "not-a-valid-hash") {
		t.Error("expected verification to fail for invalid hash")
	}
}

func TestGenerateAndParseToken(t *testing.T) {
	adapter := NewAdapter("test-jwt-secret")
	now := time.Now().Truncate(time.Second)

	token, err := adapter.GenerateToken(testClaims(now, 24*time.Hour))
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Errorf("expected JWT with 3 parts, got %q", token)
	}

	parsed, err := adapter.ParseToken(token)
	if err != nil {
		t.Fatalf("failed to parse token: %v", err)
	}
	if parsed.UserID != "user-123" || parsed.Email != "test@example.com" || parsed.TeamID != "team-456" {
		t.Errorf("unexpected claims: %+v", parsed)
	}
	if parsed.SessionID != "session-789" {
		t.Errorf("expected session-789, got %s", parsed.SessionID)
	}
	if !parsed.IssuedAt.Equal(now) {
		t.Errorf("expected issued at %v, got %v", now, parsed.IssuedAt)
	}
	if !parsed.ExpiresAt.Equal(now.Add(24 * time.Hour)) {
		t.Errorf("expected expires at %v, got %v", now.Add(24*time.Hour), parsed.ExpiresAt)
	}
}

func TestParseToken_ExpiredToken(t *testing.T) {
	adapter := NewAdapter("test-jwt-secret")

	token, err := adapter.GenerateToken(testClaims(time.Now().Add(-2*time.Hour), time.Hour))
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	_, err = adapter.ParseToken(token)
	if !errors.Is(err, domain.ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestParseToken_Invalid(t *testing.T) {
	adapter := NewAdapter("test-jwt-secret")
	other := NewAdapter("other-secret")

	foreign, _ := other.GenerateToken(testClaims(time.Now(), time.Hour))

	noneToken, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"user_id": "user-123",
		"iss":     issuer,
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	wrongIssuer, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "user-123",
		"iss":     "someone-else",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-jwt-secret"))

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt"},
		{"malformed", "a.b.c"},
		{"wrong secret", foreign},
		{"none algorithm", noneToken},
		{"wrong issuer", wrongIssuer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := adapter.ParseToken(tt.token)
			if !errors.Is(err, domain.ErrTokenInvalid) {
				t.Errorf("expected ErrTokenInvalid, got %v", err)
			}
		})
	}
}

func TestRoundTrip_AllRoles(t *testing.T) {
	adapter := NewAdapter("roundtrip-secret")

	for _, role := range []domain.Role{domain.RoleAdmin, domain.RoleMember} {
		t.Run(string(role), func(t *testing.T) {
			claims := testClaims(time.Now(), time.Hour)
			claims.Role = role

			token, err := adapter.GenerateToken(claims)
			if err != nil {
				t.Fatalf("failed to generate token: %v", err)
			}
			parsed, err := adapter.ParseToken(token)
			if err != nil {
				t.Fatalf("failed to parse token: %v", err)
			}
			if parsed.Role != role {
				t.Errorf("expected role %s, got %s", role, parsed.Role)
			}
		})
	}
}

func BenchmarkHashPassword(b *testing.B) {
	adapter := NewAdapterWithCost("secret", 4)
	for i := 0; i < b.N; i++ {
		_, _ = adapter.HashPassword("benchmarkpassword")
	}
}

func BenchmarkParseToken(b *testing.B) {
	adapter := NewAdapter("benchmark-secret")
	token, _ := adapter.GenerateToken(testClaims(time.Now(), time.Hour))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = adapter.ParseToken(token)
	}
}
