package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/microgate/platform/internal/api/metrics"
	"github.com/microgate/platform/internal/core/domain"
	"github.com/microgate/platform/internal/core/ports"
	"github.com/microgate/platform/internal/token"
)

// AuthService is the credential issuer: it validates user credentials and
// mints signed tokens with embedded identity claims. The cache in front of
// the store short-circuits repeated logins and duplicate-username probes.
type AuthService struct {
	repo        ports.UserRepository
	cache       ports.CredentialCache
	invalidator ports.CacheInvalidator
	codec       *token.Codec
	cacheTTL    time.Duration
	log         zerolog.Logger
}

func NewAuthService(repo ports.UserRepository, cache ports.CredentialCache, invalidator ports.CacheInvalidator, codec *token.Codec, cacheTTL time.Duration, log zerolog.Logger) *AuthService {
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}
	return &AuthService{repo: repo, cache: cache, invalidator: invalidator, codec: codec, cacheTTL: cacheTTL, log: log}
}

// Register creates an identity and returns a freshly minted token for it.
// The username is checked against both cache and store; the store is
// authoritative.
func (s *AuthService) Register(ctx context.Context, username, password, role string) (string, *domain.User, error) {
	if username == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}
	if role == "" {
		role = domain.RoleUser
	}
	if !domain.ValidRole(role) {
		return "", nil, domain.ErrInvalidCredentials
	}

	if _, hit, err := s.cache.Get(ctx, UserKey(username)); err == nil && hit {
		metrics.CacheOpsTotal.WithLabelValues("get", "hit").Inc()
		return "", nil, domain.ErrUserExists
	}

	if _, err := s.repo.FindByUsername(ctx, username); err == nil {
		// Remember the collision so the next probe never reaches the store.
		s.cacheSet(ctx, UserKey(username), "exists")
		return "", nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return "", nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, err
	}

	created, err := s.repo.Create(ctx, &domain.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
	})
	if err != nil {
		return "", nil, err
	}

	signed, err := s.codec.Mint(created)
	if err != nil {
		return "", nil, err
	}
	s.cacheSet(ctx, TokenKey(username), signed)
	s.cacheSet(ctx, UserIDKey(created.ID), created.Username)

	// A new identity changes every cached listing.
	if s.invalidator != nil {
		s.invalidator.InvalidatePrefix(AdminUsersScope)
	}

	return signed, created, nil
}

// Login returns a token for a valid username/password pair. A cached token
// whose embedded expiry has not passed is returned directly, without a
// password check: within its TTL window the cache entry itself is accepted as
// proof of continued validity.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	key := TokenKey(username)
	if cached, hit, err := s.cache.Get(ctx, key); err == nil && hit {
		if _, err := s.codec.Decode(cached); err == nil {
			metrics.CacheOpsTotal.WithLabelValues("get", "hit").Inc()
			metrics.LoginsTotal.WithLabelValues("cached").Inc()
			return cached, nil
		}
		// Cached token expired or no longer verifies; fall through to the store.
	}
	metrics.CacheOpsTotal.WithLabelValues("get", "miss").Inc()

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			metrics.LoginsTotal.WithLabelValues("invalid").Inc()
			return "", domain.ErrInvalidCredentials
		}
		return "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		metrics.LoginsTotal.WithLabelValues("invalid").Inc()
		return "", domain.ErrInvalidCredentials
	}

	signed, err := s.codec.Mint(user)
	if err != nil {
		return "", err
	}
	s.cacheSet(ctx, key, signed)
	metrics.LoginsTotal.WithLabelValues("success").Inc()

	return signed, nil
}

// ListUsers returns every identity, for the admin directory. The listing is
// cached under the admin:users: scope; Register invalidates that scope so a
// new identity appears in the next listing.
func (s *AuthService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	key := AdminUsersScope + "all"
	if cached, hit, err := s.cache.Get(ctx, key); err == nil && hit {
		var users []*domain.User
		if json.Unmarshal([]byte(cached), &users) == nil {
			metrics.CacheOpsTotal.WithLabelValues("get", "hit").Inc()
			return users, nil
		}
	}
	metrics.CacheOpsTotal.WithLabelValues("get", "miss").Inc()

	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if encoded, err := json.Marshal(users); err == nil {
		s.cacheSet(ctx, key, string(encoded))
	}
	return users, nil
}

// cacheSet writes a cache entry best-effort: failures are logged and ignored,
// never surfaced to the caller.
func (s *AuthService) cacheSet(ctx context.Context, key, value string) {
	if err := s.cache.SetWithExpiry(ctx, key, value, s.cacheTTL); err != nil {
		metrics.CacheOpsTotal.WithLabelValues("set", "error").Inc()
		s.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
		return
	}
	metrics.CacheOpsTotal.WithLabelValues("set", "ok").Inc()
}
