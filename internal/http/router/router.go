// Package router registra las rutas del servicio sobre chi.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/para/internal/http/controllers"
	httperrors "github.com/dropDatabas3/para/internal/http/errors"
	"github.com/dropDatabas3/para/internal/http/helpers"
	mw "github.com/dropDatabas3/para/internal/http/middlewares"
	"github.com/dropDatabas3/para/internal/rate"
)

// Deps contiene lo necesario para armar el router.
type Deps struct {
	Controllers *controllers.Controllers
	Auth        mw.AuthConfig
	Metrics     *mw.Metrics // opcional
	Limiter     rate.Limiter
	CORSOrigins []string
	// ClientIPs decide cuándo honrar X-Forwarded-For. nil usa RemoteAddr.
	ClientIPs *helpers.IPResolver
}

// New arma el handler raíz. Orden global:
// client ip -> CORS -> request id -> logging -> metrics -> recover -> security headers -> authenticate.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(
		mw.WithClientIP(d.ClientIPs),
		mw.WithCORS(d.CORSOrigins),
		mw.WithRequestID(),
		mw.WithLogging(),
		d.Metrics.WithMetrics(),
		mw.WithRecover(),
		mw.WithSecurityHeaders(),
		mw.Authenticate(d.Auth),
	)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	// Endpoints de credenciales: rate limit + no-store
	onLimited := func(string) {}
	if d.Metrics != nil {
		onLimited = d.Metrics.ObserveRateLimited
	}
	sensitive := []func(http.Handler) http.Handler{
		mw.WithRateLimit(mw.RateLimitConfig{Limiter: d.Limiter, OnLimited: onLimited}),
		mw.WithNoStore(),
	}

	c := d.Controllers
	registerHealthRoutes(r, c, d.Metrics)
	r.Get("/api/me", c.Me.Me)

	if c.Users != nil {
		registerUserRoutes(r, c, sensitive)
	}
	if c.Remote != nil {
		registerRemoteRoutes(r, c, sensitive)
	}
	return r
}

func registerHealthRoutes(r chi.Router, c *controllers.Controllers, m *mw.Metrics) {
	r.Get("/healthz", c.Health.Healthz)
	r.Get("/readyz", c.Health.Readyz)
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}
}

func registerUserRoutes(r chi.Router, c *controllers.Controllers, sensitive []func(http.Handler) http.Handler) {
	a := c.Users.Accounts
	r.Route("/api/users", func(r chi.Router) {
		r.With(sensitive...).Post("/register", a.Register)
		r.With(sensitive...).Post("/login", a.Login)
		r.Get("/check-username", a.CheckUsername)
		r.Get("/check-email", a.CheckEmail)
		r.Get("/fetch-username", a.FetchUsername)
	})
}

func registerRemoteRoutes(r chi.Router, c *controllers.Controllers, sensitive []func(http.Handler) http.Handler) {
	id := c.Remote.Identity
	r.Route("/api/auth", func(r chi.Router) {
		r.With(sensitive...).Post("/signup", id.SignUp)
		r.With(sensitive...).Post("/login", id.Login)
		r.Post("/set-username", id.SetUsername)
		r.Get("/validate-token", id.ValidateToken)
		r.Get("/google-callback", id.GoogleCallback)
		r.Delete("/profile", id.DeleteProfile)
	})
}
