package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/microgate/platform/internal/core/domain"
	"github.com/microgate/platform/internal/core/ports"
	"github.com/microgate/platform/internal/token"
)

// Context keys set by the authenticators.
const (
	CtxUsername = "username"
	CtxRole     = "role"
	CtxUserID   = "user_id"
	CtxClaims   = "claims"
	CtxIdentity = "identity"
)

// Two trust modes exist by explicit choice, not per-service accident:
//
//   - Local: the gateway decodes the token with its own copy of the shared
//     secret. No RPC on the hot path.
//   - Remote: downstream services never trust a local decode; they call the
//     token validator over RPC and then confirm the identity against their
//     own view of the user store.

// Local validates the bearer token by decoding it in-process and injects the
// claims into context.
func Local(codec *token.Codec) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := bearerToken(c)
			if err != nil {
				return err
			}

			cl, err := codec.Decode(raw)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}
			if cl.Username == "" || cl.Role == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token payload")
			}

			c.Set(CtxUsername, cl.Username)
			c.Set(CtxRole, cl.Role)
			c.Set(CtxUserID, cl.UserID)
			c.Set(CtxClaims, cl)

			return next(c)
		}
	}
}

// Remote validates the bearer token via the validator RPC, then re-resolves
// the returned username against the service's own user store. An unreachable
// validator is surfaced as ErrAuthBackendUnavailable, distinct from an
// invalid-token rejection.
func Remote(validator ports.TokenValidator, users ports.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := bearerToken(c)
			if err != nil {
				return err
			}

			verdict, err := validator.ValidateToken(c.Request().Context(), raw)
			if err != nil {
				// Surfaced as its own error kind so an auth outage is never
				// mistaken for a wave of bad tokens.
				return domain.ErrAuthBackendUnavailable
			}
			if !verdict.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token: "+verdict.Error)
			}

			user, err := users.FindByUsername(c.Request().Context(), verdict.Username)
			if err != nil {
				if errors.Is(err, domain.ErrUserNotFound) {
					return echo.NewHTTPError(http.StatusUnauthorized, "User not found")
				}
				return err
			}

			c.Set(CtxUsername, user.Username)
			c.Set(CtxRole, user.Role)
			c.Set(CtxUserID, user.ID)
			c.Set(CtxIdentity, user)

			return next(c)
		}
	}
}

// bearerToken extracts the token from the Authorization header, stripping a
// Bearer prefix if present.
func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 {
		if !strings.EqualFold(parts[0], "bearer") {
			return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
		}
		return parts[1], nil
	}
	return parts[0], nil
}
