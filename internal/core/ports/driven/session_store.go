package driven

import (
	"context"

	"github.com/custodia-labs/policypal/internal/core/domain"
)

// SessionStore handles session persistence
type SessionStore interface {
	// Save stores a session until its ExpiresAt
	Save(ctx context.Context, session *domain.Session) error

	// Get retrieves a session by ID
	Get(ctx context.Context, id string) (*domain.Session, error)

	// GetByRefreshToken retrieves a session by refresh token value
	GetByRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error)

	// Delete deletes a session. Deleting an unknown session is not an error.
	Delete(ctx context.Context, id string) error

	// DeleteByUser deletes all sessions for a user
	DeleteByUser(ctx context.Context, userID string) error
}
