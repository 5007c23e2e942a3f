package service

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/microgate/platform/internal/core/domain"
	"github.com/microgate/platform/internal/infrastructure/db/memory"
	"github.com/microgate/platform/internal/token"
)

type stubUserRepo struct {
	users     map[string]*domain.User
	nextID    int64
	listCalls int
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	if _, exists := r.users[user.Username]; exists {
		return nil, domain.ErrUserExists
	}
	r.nextID++
	created := cloneUser(user)
	created.ID = r.nextID
	r.users[created.Username] = cloneUser(created)
	return created, nil
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	u, ok := r.users[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id int64) (*domain.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) List(_ context.Context) ([]*domain.User, error) {
	r.listCalls++
	out := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubUserRepo) UpdateRole(_ context.Context, id int64, role string) error {
	for _, u := range r.users {
		if u.ID == id {
			u.Role = role
			return nil
		}
	}
	return domain.ErrUserNotFound
}

func newTestAuthService(repo *stubUserRepo, cache *memory.Cache) *AuthService {
	codec := token.NewCodec("secret", 30*time.Minute)
	return NewAuthService(repo, cache, nil, codec, time.Hour, zerolog.Nop())
}

func TestAuthService_Register_Success(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestAuthService(repo, memory.NewCache())

	signed, user, err := svc.Register(context.Background(), "alice", "pw123456", domain.RoleUser)
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if signed == "" {
		t.Fatalf("expected token, got empty")
	}
	if user == nil || user.ID == 0 {
		t.Fatalf("expected persisted user, got %+v", user)
	}
	if user.PasswordHash == "pw123456" {
		t.Fatalf("expected password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("pw123456")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
}

func TestAuthService_Register_DefaultsRole(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestAuthService(repo, memory.NewCache())

	_, user, err := svc.Register(context.Background(), "bob", "pw123456", "")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.Role != domain.RoleUser {
		t.Fatalf("expected default role %q, got %q", domain.RoleUser, user.Role)
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	svc := newTestAuthService(newStubUserRepo(), memory.NewCache())

	if _, _, err := svc.Register(context.Background(), "", "pw", domain.RoleUser); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Register(context.Background(), "eve", "pw", "superuser"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for bad role, got %v", err)
	}
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestAuthService(repo, memory.NewCache())

	if _, _, err := svc.Register(context.Background(), "carol", "first-pw", domain.RoleUser); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	firstHash := repo.users["carol"].PasswordHash

	if _, _, err := svc.Register(context.Background(), "carol", "second-pw", domain.RoleUser); err != domain.ErrUserExists {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
	if repo.users["carol"].PasswordHash != firstHash {
		t.Fatalf("duplicate registration overwrote the stored hash")
	}
}

func TestAuthService_Register_CachedCollision(t *testing.T) {
	repo := newStubUserRepo()
	cache := memory.NewCache()
	svc := newTestAuthService(repo, cache)

	// A cached "exists" marker alone must reject, even with an empty store.
	_ = cache.SetWithExpiry(context.Background(), UserKey("dave"), "exists", time.Hour)

	if _, _, err := svc.Register(context.Background(), "dave", "pw123456", domain.RoleUser); err != domain.ErrUserExists {
		t.Fatalf("expected ErrUserExists from cache hit, got %v", err)
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	repo := newStubUserRepo()
	cache := memory.NewCache()
	svc := newTestAuthService(repo, cache)

	if _, _, err := svc.Register(context.Background(), "erin", "s3cret99", domain.RoleAdmin); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	// Clear the register-time cache so login exercises the store path.
	_ = cache.Delete(context.Background(), TokenKey("erin"))

	signed, err := svc.Login(context.Background(), "erin", "s3cret99")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	cl, err := token.NewCodec("secret", time.Hour).Decode(signed)
	if err != nil {
		t.Fatalf("token invalid: %v", err)
	}
	if cl.Username != "erin" || cl.Role != domain.RoleAdmin {
		t.Fatalf("unexpected claims: %+v", cl)
	}
}

func TestAuthService_Login_InvalidPassword(t *testing.T) {
	repo := newStubUserRepo()
	cache := memory.NewCache()
	svc := newTestAuthService(repo, cache)

	_, _, _ = svc.Register(context.Background(), "frank", "goodpass", domain.RoleUser)
	_ = cache.Delete(context.Background(), TokenKey("frank"))

	if _, err := svc.Login(context.Background(), "frank", "badpass"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Login_UnknownUser(t *testing.T) {
	svc := newTestAuthService(newStubUserRepo(), memory.NewCache())

	if _, err := svc.Login(context.Background(), "ghost", "pw"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Login_CachedTokenBypassesPassword(t *testing.T) {
	repo := newStubUserRepo()
	cache := memory.NewCache()
	svc := newTestAuthService(repo, cache)

	first, _, err := svc.Register(context.Background(), "grace", "realpass", domain.RoleUser)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	// Within the cache TTL the entry itself is accepted as proof of
	// validity: even a wrong password returns the cached token.
	got, err := svc.Login(context.Background(), "grace", "wrong-password")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if got != first {
		t.Fatalf("expected the cached token to be returned")
	}
}

func TestAuthService_Login_ExpiredCachedTokenFallsThrough(t *testing.T) {
	repo := newStubUserRepo()
	cache := memory.NewCache()
	svc := newTestAuthService(repo, cache)

	if _, _, err := svc.Register(context.Background(), "heidi", "realpass", domain.RoleUser); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	// Replace the cached token with one whose embedded expiry has passed;
	// the cache TTL is still live, but the token itself is dead.
	dead := token.NewCodec("secret", time.Nanosecond)
	expired, err := dead.Remint(token.Claims{Username: "heidi", Role: domain.RoleUser, ExpiresAt: time.Now().Add(-time.Minute)})
	if err != nil {
		t.Fatalf("mint expired token: %v", err)
	}
	_ = cache.SetWithExpiry(context.Background(), TokenKey("heidi"), expired, time.Hour)

	if _, err := svc.Login(context.Background(), "heidi", "wrong-password"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected password check after cached token expired, got %v", err)
	}

	got, err := svc.Login(context.Background(), "heidi", "realpass")
	if err != nil {
		t.Fatalf("login with correct password failed: %v", err)
	}
	if got == expired {
		t.Fatalf("expected a freshly minted token")
	}
}

type captureInvalidator struct {
	keys     []string
	prefixes []string
}

func (c *captureInvalidator) Invalidate(keys ...string)      { c.keys = append(c.keys, keys...) }
func (c *captureInvalidator) InvalidatePrefix(prefix string) { c.prefixes = append(c.prefixes, prefix) }

func TestAuthService_Register_InvalidatesAdminListing(t *testing.T) {
	repo := newStubUserRepo()
	inv := &captureInvalidator{}
	codec := token.NewCodec("secret", 30*time.Minute)
	svc := NewAuthService(repo, memory.NewCache(), inv, codec, time.Hour, zerolog.Nop())

	if _, _, err := svc.Register(context.Background(), "ivan", "pw123456", domain.RoleUser); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if len(inv.prefixes) != 1 || inv.prefixes[0] != AdminUsersScope {
		t.Fatalf("expected one %q prefix invalidation, got %v", AdminUsersScope, inv.prefixes)
	}
}

func TestAuthService_ListUsers_CachesListing(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestAuthService(repo, memory.NewCache())

	for _, name := range []string{"alice", "bob"} {
		if _, _, err := svc.Register(context.Background(), name, "pw123456", domain.RoleUser); err != nil {
			t.Fatalf("register %s failed: %v", name, err)
		}
	}

	first, err := svc.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(first) != 2 || first[0].Username != "alice" || first[1].Username != "bob" {
		t.Fatalf("unexpected listing: %+v", first)
	}

	second, err := svc.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if repo.listCalls != 1 {
		t.Fatalf("store listed %d times, want 1 (second call cached)", repo.listCalls)
	}
	if len(second) != 2 {
		t.Fatalf("unexpected cached listing: %+v", second)
	}
}
