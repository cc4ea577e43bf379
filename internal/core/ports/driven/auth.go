package driven

import "github.com/custodia-labs/policypal/internal/core/domain"

// AuthAdapter handles password hashing and token signing.
// Session persistence lives in SessionStore.
type AuthAdapter interface {
	// HashPassword derives a storable hash
	HashPassword(password string) (string, error)

	// VerifyPassword checks a password against a stored hash
	VerifyPassword(password, hash string) bool

	// GenerateToken signs claims into a bearer token
	GenerateToken(claims *domain.TokenClaims) (string, error)

	// ParseToken verifies a bearer token and returns its claims
	ParseToken(token string) (*domain.TokenClaims, error)
}
