package api

import (
	"database/sql"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/microgate/platform/internal/api/handler"
	"github.com/microgate/platform/internal/api/middleware"
	"github.com/microgate/platform/internal/core/domain"
	"github.com/microgate/platform/internal/core/ports"
)

// Deps carries the auth service's wired dependencies into the router.
type Deps struct {
	Users     ports.UserRepository
	Auth      ports.AuthService
	Validator ports.TokenValidator
	DB        *sql.DB
	Redis     *redis.Client
	Log       zerolog.Logger
}

// NewRouter builds and returns the auth service's Echo instance with all
// routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("authsvc"))

	authHandler := handler.NewAuthHandler(d.Auth)

	// The service's own /validate goes through the same RPC-backed trust
	// path every other downstream service uses.
	remoteAuth := middleware.Remote(d.Validator, d.Users)

	e.POST("/register", authHandler.Register)
	e.POST("/login", authHandler.Login)
	e.GET("/validate", authHandler.Validate, remoteAuth)
	e.GET("/admin/users", authHandler.ListUsers, remoteAuth, middleware.RBAC(domain.RoleAdmin))

	// --- Health probes and metrics (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(d.DB, d.Redis)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())

	e.Server.ReadHeaderTimeout = 10 * time.Second

	return e
}
