package service

import (
	"context"
	"errors"

	"github.com/microgate/platform/internal/api/metrics"
	"github.com/microgate/platform/internal/core/domain"
	"github.com/microgate/platform/internal/core/ports"
	"github.com/microgate/platform/internal/token"
)

// ValidatorService verifies a token's signature and expiry, resolves the
// embedded identity against the user store, and returns a verdict. It is
// read-only and safe for concurrent invocation from any number of callers.
type ValidatorService struct {
	repo  ports.UserRepository
	codec *token.Codec
}

func NewValidatorService(repo ports.UserRepository, codec *token.Codec) *ValidatorService {
	return &ValidatorService{repo: repo, codec: codec}
}

// ValidateToken produces a verdict for raw. A bad token is always a verdict
// with Valid=false, never an error; the error return is reserved for store
// failures. Username and role come fresh from the store, not from the token
// claims, so role changes take effect before token expiry.
func (s *ValidatorService) ValidateToken(ctx context.Context, raw string) (domain.Verdict, error) {
	claims, err := s.codec.Decode(raw)
	if err != nil {
		metrics.TokenValidationsTotal.WithLabelValues("invalid").Inc()
		return domain.Invalid("invalid token"), nil
	}
	if claims.Username == "" {
		metrics.TokenValidationsTotal.WithLabelValues("invalid").Inc()
		return domain.Invalid("Invalid token payload"), nil
	}

	user, err := s.repo.FindByUsername(ctx, claims.Username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			metrics.TokenValidationsTotal.WithLabelValues("invalid").Inc()
			return domain.Invalid("User not found"), nil
		}
		metrics.TokenValidationsTotal.WithLabelValues("error").Inc()
		return domain.Verdict{}, err
	}

	metrics.TokenValidationsTotal.WithLabelValues("valid").Inc()
	return domain.Verdict{Valid: true, Username: user.Username, Role: user.Role}, nil
}
