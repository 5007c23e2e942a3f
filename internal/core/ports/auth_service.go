package ports

import (
	"context"

	"github.com/microgate/platform/internal/core/domain"
)

// AuthService issues credentials: it owns registration, login and the
// admin-facing user directory.
type AuthService interface {
	Register(ctx context.Context, username, password, role string) (string, *domain.User, error)
	Login(ctx context.Context, username, password string) (string, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
}

// TokenValidator turns a raw token into a verdict. Invalid tokens are a
// verdict with Valid=false, never an error; the error return is reserved for
// the validation backend being unreachable.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (domain.Verdict, error)
}
