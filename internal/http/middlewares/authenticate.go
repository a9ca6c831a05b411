package middlewares

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/dropDatabas3/para/internal/auth"
	"github.com/dropDatabas3/para/internal/http/errors"
	"github.com/dropDatabas3/para/internal/http/helpers"
	"github.com/dropDatabas3/para/internal/jwt"
	"github.com/dropDatabas3/para/internal/observability/logger"
)

// Resultados de una decisión de autenticación (label "outcome" en métricas).
const (
	OutcomePublic    = "public"
	OutcomeMissing   = "missing"
	OutcomeExpired   = "expired"
	OutcomeInvalid   = "invalid"
	OutcomeForbidden = "forbidden"
	OutcomeOK        = "ok"
)

// AuthConfig configura Authenticate.
type AuthConfig struct {
	Verifier auth.Verifier
	Policy   *auth.Policy
	// OnDecision recibe cada decisión (métricas). Opcional.
	OnDecision func(mode, outcome string)
}

// Authenticate resuelve la identidad del request con el único Verifier del proceso
// y aplica la política: rutas públicas pasan sin verificar, el resto necesita
// identidad (401) y, si la ruta declara rol, el rol (403).
// Un panic dentro del verificador se trata como token rechazado.
func Authenticate(cfg AuthConfig) Middleware {
	if cfg.Verifier == nil || cfg.Policy == nil {
		panic("middlewares: Authenticate requires a verifier and a policy")
	}
	mode := cfg.Verifier.Mode()
	decide := func(r *http.Request, outcome, subject string) {
		noteAuth(r.Context(), outcome, subject)
		if cfg.OnDecision != nil {
			cfg.OnDecision(mode, outcome)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Preflight: lo resuelve CORS, acá solo por si el orden cambia
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			log := logger.From(r.Context()).With(logger.AuthMode(mode))

			if cfg.Policy.IsPublic(r.Method, r.URL.Path) {
				decide(r, OutcomePublic, "")
				next.ServeHTTP(w, r)
				return
			}

			raw, ok := helpers.BearerToken(r)
			if !ok {
				decide(r, OutcomeMissing, "")
				log.Debug("missing bearer token", logger.Outcome(OutcomeMissing))
				w.Header().Set("WWW-Authenticate", `Bearer realm="para"`)
				errors.WriteError(w, errors.ErrTokenMissing)
				return
			}

			id, err := safeVerify(r.Context(), cfg.Verifier, raw)
			if err != nil {
				outcome, appErr := rejection(err)
				decide(r, outcome, "")
				log.Info("token rejected",
					logger.Outcome(outcome),
					logger.TokenPreview(raw),
					logger.Err(err),
				)
				w.Header().Set("WWW-Authenticate", `Bearer realm="para", error="invalid_token"`)
				errors.WriteError(w, appErr)
				return
			}

			log = log.With(logger.UserID(id.Subject))
			if cfg.Policy.Decide(r.Method, r.URL.Path, &id) == auth.Forbidden {
				decide(r, OutcomeForbidden, id.Subject)
				log.Info("insufficient role", logger.Outcome(OutcomeForbidden))
				errors.WriteError(w, errors.ErrForbidden)
				return
			}

			decide(r, OutcomeOK, id.Subject)
			ctx := auth.WithIdentity(r.Context(), id)
			ctx = auth.WithBearer(ctx, raw)
			ctx = logger.ToContext(ctx, log)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// safeVerify llama al verificador y convierte un panic en error.
func safeVerify(ctx context.Context, v auth.Verifier, raw string) (id auth.Identity, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			id = auth.Identity{}
			err = fmt.Errorf("verifier panic: %v", rec)
		}
	}()
	id, err = v.Verify(ctx, raw)
	if err == nil && id.Subject == "" {
		err = stderrors.New("verifier returned identity without subject")
	}
	return id, err
}

func rejection(err error) (string, *errors.AppError) {
	if stderrors.Is(err, jwt.ErrExpiredToken) {
		return OutcomeExpired, errors.ErrTokenExpired
	}
	return OutcomeInvalid, errors.ErrTokenInvalid
}
