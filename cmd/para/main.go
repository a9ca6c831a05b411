package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/para/internal/config"
	"github.com/dropDatabas3/para/internal/http/server"
	"github.com/dropDatabas3/para/internal/jwt"
	"github.com/dropDatabas3/para/internal/observability/logger"
	"github.com/dropDatabas3/para/internal/store"
)

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func main() {
	// .env es opcional; el entorno del sistema manda igual
	_ = godotenv.Load()

	configPath := envOr("PARA_CONFIG", "")

	root := &cobra.Command{
		Use:           "para",
		Short:         "Middleware de autenticación y autorización (local o remoto)",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", configPath, "Path al YAML de config (env PARA_CONFIG)")

	load := func() (*config.Config, error) {
		c, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		logger.Init(logger.Config{Env: c.App.Env, Level: c.Log.Level, Service: "para"})
		return c, nil
	}

	// serve
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), c)
		},
	}

	// migrate
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones embebidas (solo storage postgres)",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := load()
			if err != nil {
				return err
			}
			conn, err := server.OpenStore(cmd.Context(), c)
			if err != nil {
				return err
			}
			defer conn.Close()

			m, ok := conn.(store.Migratable)
			if !ok {
				return fmt.Errorf("storage driver %q no soporta migraciones", conn.Name())
			}
			n, err := m.Migrate(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migraciones aplicadas: %d\n", n)
			return nil
		},
	}

	// token issue
	var subject, role, email string
	tokenCmd := &cobra.Command{Use: "token", Short: "Tokens locales"}
	issueCmd := &cobra.Command{
		Use:   "issue",
		Short: "Emite un token HS256 con la clave configurada (modo local)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if subject == "" {
				return errors.New("--subject es obligatorio")
			}
			c, err := load()
			if err != nil {
				return err
			}
			if c.Auth.Mode != config.ModeLocal {
				return fmt.Errorf("token issue requiere auth.mode=%s (actual %s)", config.ModeLocal, c.Auth.Mode)
			}
			signer, err := server.NewSigner(c)
			if err != nil {
				return err
			}
			tok, err := signer.Issue(subject, jwt.Extra{Role: role, Email: email})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok.Raw)
			return nil
		},
	}
	issueCmd.Flags().StringVar(&subject, "subject", "", "Subject (username)")
	issueCmd.Flags().StringVar(&role, "role", "", "Rol (default USER al verificar)")
	issueCmd.Flags().StringVar(&email, "email", "", "Email opcional")
	tokenCmd.AddCommand(issueCmd)

	// policy list
	policyCmd := &cobra.Command{Use: "policy", Short: "Política de acceso"}
	policyListCmd := &cobra.Command{
		Use:   "list",
		Short: "Lista rutas públicas y reglas de rol efectivas",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := load()
			if err != nil {
				return err
			}
			p, err := server.BuildPolicy(c)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "mode: %s\n", c.Auth.Mode)
			fmt.Fprintln(out, "public:")
			for _, s := range p.Patterns() {
				fmt.Fprintf(out, "  %s\n", s)
			}
			if roles := p.RolePatterns(); len(roles) > 0 {
				fmt.Fprintln(out, "roles:")
				for _, s := range roles {
					fmt.Fprintf(out, "  %s\n", s)
				}
			}
			return nil
		},
	}
	policyCmd.AddCommand(policyListCmd)

	root.AddCommand(serveCmd, migrateCmd, tokenCmd, policyCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func serve(ctx context.Context, c *config.Config) error {
	log := logger.L()
	defer func() { _ = logger.L().Sync() }()

	app, err := server.Build(ctx, c, server.WithRuntimeMetrics())
	if err != nil {
		return fmt.Errorf("wiring: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Warn("cleanup", logger.Err(err))
		}
	}()

	srv := app.HTTPServer()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("listening",
			logger.Any("addr", srv.Addr),
			logger.AuthMode(c.Auth.Mode),
			logger.Any("public_paths", len(app.Policy.Patterns())),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(c))
		defer cancel()
		return srv.Shutdown(sctx)
	})

	return g.Wait()
}

func shutdownTimeout(c *config.Config) time.Duration {
	if c.Server.ShutdownTimeout > 0 {
		return c.Server.ShutdownTimeout
	}
	return 10 * time.Second
}
