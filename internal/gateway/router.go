package gateway

import (
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/microgate/platform/internal/api"
	"github.com/microgate/platform/internal/api/handler"
	"github.com/microgate/platform/internal/api/middleware"
	"github.com/microgate/platform/internal/token"
)

// Services holds the downstream base URLs the gateway fronts.
type Services struct {
	Auth      string
	Dashboard string
	Image     string
	Search    string
}

// NewRouter builds the gateway's Echo instance. Authentication is the local
// trust mode: the gateway decodes tokens with its own copy of the shared
// secret and never calls the validator RPC on the hot path.
func NewRouter(codec *token.Codec, services Services, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = api.NewHTTPErrorHandler(log)

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("gateway"))

	fwd := NewForwarder(codec, log)
	auth := middleware.Local(codec)

	h := &proxyHandler{fwd: fwd, services: services}

	// --- Auth service routes ---
	e.POST("/auth/register", h.anonymous("auth", func(s Services) string { return s.Auth + "/register" }))
	e.POST("/auth/login", h.anonymous("auth", func(s Services) string { return s.Auth + "/login" }))
	e.GET("/auth/validate", h.authed("auth", func(s Services) string { return s.Auth + "/validate" }), auth)

	// --- Dashboard service routes ---
	e.GET("/dashboard", h.authed("dashboard", func(s Services) string { return s.Dashboard + "/" }), auth)
	e.PUT("/dashboard/:id", h.authedWithID("dashboard", func(s Services) string { return s.Dashboard + "/dashboard/" }), auth)
	e.DELETE("/dashboard/:id", h.authedWithID("dashboard", func(s Services) string { return s.Dashboard + "/dashboard/" }), auth)

	// --- Image service routes ---
	e.POST("/image/generate", h.authed("image", func(s Services) string { return s.Image + "/generate" }), auth)

	// --- Search service routes ---
	e.POST("/search/query", h.authed("search", func(s Services) string { return s.Search + "/query" }), auth)

	// --- Health probes and metrics ---
	healthHandler := handler.NewHealthHandler()
	e.GET("/health", healthHandler.Liveness)
	e.GET("/metrics", echoprometheus.NewHandler())

	e.Server.ReadHeaderTimeout = 10 * time.Second

	return e
}

type proxyHandler struct {
	fwd      *Forwarder
	services Services
}

func (h *proxyHandler) anonymous(service string, target func(Services) string) echo.HandlerFunc {
	return func(c echo.Context) error {
		body, err := readBody(c)
		if err != nil {
			return err
		}
		res, err := h.fwd.ForwardAnonymous(c.Request().Context(), service,
			c.Request().Method, target(h.services), c.QueryParams(), body, c.Request().Header.Get("Content-Type"))
		if err != nil {
			return err
		}
		return respond(c, res)
	}
}

func (h *proxyHandler) authed(service string, target func(Services) string) echo.HandlerFunc {
	return func(c echo.Context) error {
		cl, _ := c.Get(middleware.CtxClaims).(token.Claims)
		body, err := readBody(c)
		if err != nil {
			return err
		}
		res, err := h.fwd.Forward(c.Request().Context(), service, cl,
			c.Request().Method, target(h.services), c.QueryParams(), body, c.Request().Header.Get("Content-Type"))
		if err != nil {
			return err
		}
		return respond(c, res)
	}
}

func (h *proxyHandler) authedWithID(service string, target func(Services) string) echo.HandlerFunc {
	return func(c echo.Context) error {
		cl, _ := c.Get(middleware.CtxClaims).(token.Claims)
		body, err := readBody(c)
		if err != nil {
			return err
		}
		res, err := h.fwd.Forward(c.Request().Context(), service, cl,
			c.Request().Method, target(h.services)+c.Param("id"), c.QueryParams(), body, c.Request().Header.Get("Content-Type"))
		if err != nil {
			return err
		}
		return respond(c, res)
	}
}

func readBody(c echo.Context) ([]byte, error) {
	if c.Request().Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "unreadable request body")
	}
	if len(body) == 0 {
		return nil, nil
	}
	return body, nil
}

// respond relays the downstream status, content type and body verbatim.
func respond(c echo.Context, res *Result) error {
	contentType := res.ContentType
	if contentType == "" {
		contentType = echo.MIMEApplicationJSON
	}
	return c.Blob(res.Status, contentType, res.Body)
}
