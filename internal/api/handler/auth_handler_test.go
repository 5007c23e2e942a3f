package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/microgate/platform/internal/api/middleware"
	"github.com/microgate/platform/internal/core/domain"
)

type stubAuthService struct {
	registerToken string
	registerUser  *domain.User
	registerErr   error
	loginToken    string
	loginErr      error
	listUsers     []*domain.User
	listErr       error

	gotUsername string
	gotPassword string
	gotRole     string
}

func (s *stubAuthService) Register(_ context.Context, username, password, role string) (string, *domain.User, error) {
	s.gotUsername, s.gotPassword, s.gotRole = username, password, role
	return s.registerToken, s.registerUser, s.registerErr
}

func (s *stubAuthService) Login(_ context.Context, username, password string) (string, error) {
	s.gotUsername, s.gotPassword = username, password
	return s.loginToken, s.loginErr
}

func (s *stubAuthService) ListUsers(context.Context) ([]*domain.User, error) {
	return s.listUsers, s.listErr
}

func newTestContext(method, target, body, contentType string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRegister_Created(t *testing.T) {
	svc := &stubAuthService{
		registerToken: "signed-token",
		registerUser:  &domain.User{ID: 1, Username: "alice", Role: domain.RoleUser},
	}
	h := NewAuthHandler(svc)

	body := `{"username":"alice","password":"hunter22","role":"user"}`
	c, rec := newTestContext(http.MethodPost, "/register", body, echo.MIMEApplicationJSON)

	if err := h.Register(c); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}

	var resp tokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.AccessToken != "signed-token" || resp.TokenType != "bearer" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if svc.gotUsername != "alice" || svc.gotRole != "user" {
		t.Fatalf("service called with %q/%q", svc.gotUsername, svc.gotRole)
	}
}

func TestRegister_ValidationRejectsShortPassword(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{})

	body := `{"username":"alice","password":"tiny"}`
	c, rec := newTestContext(http.MethodPost, "/register", body, echo.MIMEApplicationJSON)

	if err := h.Register(c); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRegister_ValidationRejectsBadRole(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{})

	body := `{"username":"alice","password":"hunter22","role":"wizard"}`
	c, rec := newTestContext(http.MethodPost, "/register", body, echo.MIMEApplicationJSON)

	if err := h.Register(c); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRegister_DuplicateSurfacesDomainError(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{registerErr: domain.ErrUserExists})

	body := `{"username":"alice","password":"hunter22"}`
	c, _ := newTestContext(http.MethodPost, "/register", body, echo.MIMEApplicationJSON)

	err := h.Register(c)
	if !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestLogin_OK(t *testing.T) {
	svc := &stubAuthService{loginToken: "signed-token"}
	h := NewAuthHandler(svc)

	form := url.Values{"username": {"alice"}, "password": {"hunter22"}}
	c, rec := newTestContext(http.MethodPost, "/login", form.Encode(), echo.MIMEApplicationForm)

	if err := h.Login(c); err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp tokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.AccessToken != "signed-token" || resp.TokenType != "bearer" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestLogin_MissingFields(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{})

	form := url.Values{"username": {"alice"}}
	c, _ := newTestContext(http.MethodPost, "/login", form.Encode(), echo.MIMEApplicationForm)

	err := h.Login(c)
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{loginErr: domain.ErrInvalidCredentials})

	form := url.Values{"username": {"alice"}, "password": {"wrong"}}
	c, _ := newTestContext(http.MethodPost, "/login", form.Encode(), echo.MIMEApplicationForm)

	err := h.Login(c)
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestValidate_ReturnsIdentity(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{})

	c, rec := newTestContext(http.MethodGet, "/validate", "", "")
	c.Set(middleware.CtxIdentity, &domain.User{ID: 7, Username: "alice", Role: domain.RoleAdmin})

	if err := h.Validate(c); err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp identityResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != 7 || resp.Username != "alice" || resp.Role != domain.RoleAdmin {
		t.Fatalf("unexpected identity: %+v", resp)
	}
}

func TestValidate_MissingIdentity(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{})

	c, _ := newTestContext(http.MethodGet, "/validate", "", "")

	err := h.Validate(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestListUsers_ReturnsDirectory(t *testing.T) {
	svc := &stubAuthService{listUsers: []*domain.User{
		{ID: 1, Username: "alice", Role: domain.RoleAdmin},
		{ID: 2, Username: "bob", Role: domain.RoleUser},
	}}
	h := NewAuthHandler(svc)

	c, rec := newTestContext(http.MethodGet, "/admin/users", "", "")
	if err := h.ListUsers(c); err != nil {
		t.Fatalf("ListUsers error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp []identityResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp) != 2 || resp[0].Username != "alice" || resp[1].Username != "bob" {
		t.Fatalf("unexpected directory: %+v", resp)
	}
}

func TestListUsers_EmptyDirectoryIsEmptyArray(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{})

	c, rec := newTestContext(http.MethodGet, "/admin/users", "", "")
	if err := h.ListUsers(c); err != nil {
		t.Fatalf("ListUsers error: %v", err)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Fatalf("body = %q, want []", got)
	}
}
