package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/microgate/platform/internal/core/domain"
)

func invokeRBAC(t *testing.T, role string, allowed ...string) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if role != "" {
		c.Set(CtxRole, role)
	}

	handler := RBAC(allowed...)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

func TestRBAC_AllowsMatchingRole(t *testing.T) {
	rec := invokeRBAC(t, domain.RoleAdmin, domain.RoleAdmin)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRBAC_ForbidsOtherRole(t *testing.T) {
	rec := invokeRBAC(t, domain.RoleUser, domain.RoleAdmin)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestRBAC_ForbidsMissingRole(t *testing.T) {
	rec := invokeRBAC(t, "", domain.RoleAdmin)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestRBAC_MultipleAllowedRoles(t *testing.T) {
	rec := invokeRBAC(t, domain.RoleUser, domain.RoleUser, domain.RoleAdmin)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
