// Package token implements the HS256 codec shared by the credential issuer,
// the token validator and the gateway. A token is a signed, time-bounded
// assertion of an identity's claims; it is immutable once issued and dies at
// expiry.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/microgate/platform/internal/core/domain"
)

// DefaultTTL is the default validity window for freshly minted tokens.
const DefaultTTL = 30 * time.Minute

var ErrInvalidToken = errors.New("invalid token")

// Claims is the decoded payload of a token.
type Claims struct {
	Username  string
	Role      string
	UserID    int64
	ExpiresAt time.Time
}

// Codec mints and verifies tokens under one shared secret and a fixed
// algorithm (HS256). Safe for concurrent use.
type Codec struct {
	secret []byte
	ttl    time.Duration
}

func NewCodec(secret string, ttl time.Duration) *Codec {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Codec{secret: []byte(secret), ttl: ttl}
}

// TTL returns the configured validity window.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Mint signs a fresh token for user, expiring ttl from now.
func (c *Codec) Mint(user *domain.User) (string, error) {
	return c.sign(user.Username, user.Role, user.ID, time.Now().Add(c.ttl))
}

// Remint re-signs a token for already-authenticated claims. The new expiry is
// the earlier of the original expiry and now+ttl, so re-minting never widens
// the caller's trust window.
func (c *Codec) Remint(cl Claims) (string, error) {
	exp := time.Now().Add(c.ttl)
	if !cl.ExpiresAt.IsZero() && cl.ExpiresAt.Before(exp) {
		exp = cl.ExpiresAt
	}
	return c.sign(cl.Username, cl.Role, cl.UserID, exp)
}

func (c *Codec) sign(username, role string, id int64, exp time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":  username,
		"role": role,
		"id":   id,
		"exp":  exp.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(c.secret)
}

// Decode verifies signature and expiry and returns the embedded claims.
// Expired and malformed tokens both come back as ErrInvalidToken: expiry is
// enforced by the library's claim check inside parsing.
func (c *Codec) Decode(raw string) (Claims, error) {
	claims := jwt.MapClaims{}
	tkn, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return c.secret, nil
	})
	if err != nil || !tkn.Valid {
		return Claims{}, ErrInvalidToken
	}

	out := Claims{}
	out.Username, _ = claims["sub"].(string)
	out.Role, _ = claims["role"].(string)
	if id, ok := claims["id"].(float64); ok {
		out.UserID = int64(id)
	}
	if exp, ok := claims["exp"].(float64); ok {
		out.ExpiresAt = time.Unix(int64(exp), 0)
	}
	return out, nil
}
