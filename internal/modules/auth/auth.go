package auth

import (
	"context"
	"errors"
	"time"

	"github.com/georgemunganga/shopu-backend/internal/modules/user"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Service verifies identity tokens issued by the campus sign-in provider.
type Service interface {
	// Authenticate resolves a bearer token to the signed-in user. Accounts
	// without a stored profile are customers.
	Authenticate(ctx context.Context, token string) (*user.User, error)

	// IssueToken signs a token for email. Production tokens come from the
	// identity provider; this exists for local development and tests.
	IssueToken(email string, ttl time.Duration) (string, error)
}
