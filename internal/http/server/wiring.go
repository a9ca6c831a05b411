// Package server arma el servicio completo a partir de la configuración:
// store, verificador del modo activo, política, services, controllers y router.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dropDatabas3/para/internal/auth"
	"github.com/dropDatabas3/para/internal/config"
	"github.com/dropDatabas3/para/internal/credentials"
	"github.com/dropDatabas3/para/internal/http/controllers"
	"github.com/dropDatabas3/para/internal/http/controllers/health"
	"github.com/dropDatabas3/para/internal/http/helpers"
	mw "github.com/dropDatabas3/para/internal/http/middlewares"
	"github.com/dropDatabas3/para/internal/http/router"
	"github.com/dropDatabas3/para/internal/http/services"
	"github.com/dropDatabas3/para/internal/jwt"
	"github.com/dropDatabas3/para/internal/observability/logger"
	"github.com/dropDatabas3/para/internal/rate"
	"github.com/dropDatabas3/para/internal/security/password"
	"github.com/dropDatabas3/para/internal/store"
	"github.com/dropDatabas3/para/internal/supabase"

	// adapters de store (registro vía init)
	_ "github.com/dropDatabas3/para/internal/store/memory"
	_ "github.com/dropDatabas3/para/internal/store/pg"
)

// App es el servicio armado. Close libera store y limiter.
type App struct {
	Config  *config.Config
	Handler http.Handler
	Policy  *auth.Policy
	Metrics *mw.Metrics
	// Store es nil en modo remoto.
	Store store.Connection

	closers []func() error
}

// Option ajusta el armado (tests).
type Option func(*options)

type options struct {
	registry   *prometheus.Registry
	httpClient *http.Client
	collectGo  bool
}

// WithRegistry usa un registry propio para las métricas.
func WithRegistry(r *prometheus.Registry) Option { return func(o *options) { o.registry = r } }

// WithHTTPClient reemplaza el cliente usado contra el proveedor remoto.
func WithHTTPClient(c *http.Client) Option { return func(o *options) { o.httpClient = c } }

// WithRuntimeMetrics agrega los collectors de Go y proceso.
func WithRuntimeMetrics() Option { return func(o *options) { o.collectGo = true } }

// BuildPolicy compila la allow-list y las reglas de rol de la config.
func BuildPolicy(c *config.Config) (*auth.Policy, error) {
	p, err := auth.NewPolicy(c.Auth.PublicPaths)
	if err != nil {
		return nil, fmt.Errorf("auth.public_paths: %w", err)
	}
	patterns := make([]string, 0, len(c.Auth.Roles))
	for pattern := range c.Auth.Roles {
		patterns = append(patterns, pattern)
	}
	sort.Strings(patterns)
	for _, pattern := range patterns {
		if err := p.RequireRole(pattern, c.Auth.Roles[pattern]); err != nil {
			return nil, fmt.Errorf("auth.roles: %w", err)
		}
	}
	return p, nil
}

// NewSigner arma el Signer HS256 desde la config.
func NewSigner(c *config.Config) (*jwt.Signer, error) {
	return jwt.NewSigner([]byte(c.JWT.SigningKey), c.JWT.Issuer, c.JWT.TTL)
}

// OpenStore abre la conexión del driver configurado.
func OpenStore(ctx context.Context, c *config.Config) (store.Connection, error) {
	return store.Open(ctx, store.AdapterConfig{
		Driver:   c.Storage.Driver,
		DSN:      c.Storage.DSN,
		MaxConns: c.Storage.MaxConns,
	})
}

// Build arma el App. Exactamente un verificador según auth.mode.
func Build(ctx context.Context, c *config.Config, opts ...Option) (_ *App, err error) {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	log := logger.L().With(logger.Component("server"), logger.AuthMode(c.Auth.Mode))

	app := &App{Config: c}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	if app.Policy, err = BuildPolicy(c); err != nil {
		return nil, err
	}

	deps := services.Deps{}
	checks := map[string]health.Check{}
	var verifier auth.Verifier
	var poolStat func() *pgxpool.Stat

	switch c.Auth.Mode {
	case config.ModeLocal:
		signer, err := NewSigner(c)
		if err != nil {
			return nil, err
		}
		conn, err := OpenStore(ctx, c)
		if err != nil {
			return nil, err
		}
		app.Store = conn
		app.closers = append(app.closers, conn.Close)
		checks["store"] = conn.Ping
		if s, ok := conn.(interface{ Stat() *pgxpool.Stat }); ok {
			poolStat = s.Stat
		}

		blacklist, err := password.LoadBlacklist(c.Security.PasswordBlacklistPath)
		if err != nil {
			return nil, fmt.Errorf("security.password_blacklist_path: %w", err)
		}
		pp := c.Security.PasswordPolicy
		policy := password.Policy{
			MinLength:     pp.MinLength,
			RequireUpper:  pp.RequireUpper,
			RequireLower:  pp.RequireLower,
			RequireDigit:  pp.RequireDigit,
			RequireSymbol: pp.RequireSymbol,
			Symbols:       pp.Symbols,
		}
		deps.Credentials = credentials.NewService(conn.Users(), policy, blacklist, password.NewHasher(c.Security.BcryptCost))
		deps.Signer = signer
		verifier, err = auth.NewVerifier(config.ModeLocal, signer, nil)
		if err != nil {
			return nil, err
		}

	case config.ModeRemote:
		// métricas primero: el cliente reporta cada llamada
	default:
		return nil, fmt.Errorf("server: unknown auth mode %q", c.Auth.Mode)
	}

	app.Metrics, err = mw.RegisterMetrics(mw.MetricsConfig{
		Registry:     o.registry,
		PoolStat:     poolStat,
		GoCollectors: o.collectGo,
	})
	if err != nil {
		return nil, err
	}

	if c.Auth.Mode == config.ModeRemote {
		client, err := supabase.New(supabase.Config{
			BaseURL:       c.Supabase.URL,
			APIKey:        c.Supabase.APIKey,
			Timeout:       c.Supabase.Timeout,
			FetchAttempts: c.Supabase.ProfileFetchAttempts,
			FetchDelay:    c.Supabase.ProfileFetchDelay,
			HTTPClient:    o.httpClient,
			Observe:       app.Metrics.ObserveProvider,
		})
		if err != nil {
			return nil, err
		}
		provisioner := auth.NewProvisioner(client)
		deps.Provider = client
		deps.Provisioner = provisioner
		deps.LoginHook = provisioner.Hook()
		if verifier, err = auth.NewVerifier(config.ModeRemote, nil, client); err != nil {
			return nil, err
		}
	}

	clientIPs, err := helpers.NewIPResolver(c.Server.TrustedProxies)
	if err != nil {
		return nil, err
	}

	limiter, closeLimiter, err := rate.FromConfig(ctx, c)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, closeLimiter)

	ctrls := controllers.New(services.New(deps), c.Auth.Mode, checks)
	app.Handler = router.New(router.Deps{
		Controllers: ctrls,
		Auth: mw.AuthConfig{
			Verifier:   verifier,
			Policy:     app.Policy,
			OnDecision: app.Metrics.ObserveDecision,
		},
		Metrics:     app.Metrics,
		Limiter:     limiter,
		CORSOrigins: c.Server.CORSAllowedOrigins,
		ClientIPs:   clientIPs,
	})

	log.Info("service assembled",
		logger.Any("storage", c.Storage.Driver),
		logger.Any("public_paths", len(c.Auth.PublicPaths)),
		logger.Any("rate_limit", limiter != nil),
	)
	return app, nil
}

// HTTPServer devuelve el *http.Server configurado para app.
func (a *App) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              a.Config.Server.Addr,
		Handler:           a.Handler,
		ReadTimeout:       a.Config.Server.ReadTimeout,
		ReadHeaderTimeout: a.Config.Server.ReadTimeout,
		WriteTimeout:      a.Config.Server.WriteTimeout,
	}
}

// Close libera recursos en orden inverso.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
