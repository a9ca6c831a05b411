package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dropDatabas3/para/internal/auth"
	dto "github.com/dropDatabas3/para/internal/http/dto/remote"
	"github.com/dropDatabas3/para/internal/observability/logger"
	"github.com/dropDatabas3/para/internal/supabase"
)

var (
	ErrSignupFailed    = errors.New("signup failed")
	ErrLoginFailed     = errors.New("login failed")
	ErrSubjectMismatch = errors.New("supabaseUid does not match the authenticated user")
)

// SignupResult: Pending indica que el proveedor no devolvió sesión (confirmación
// de email pendiente); en ese caso el profile se crea en el primer login.
type SignupResult struct {
	User        dto.UserDTO
	AccessToken string
	Pending     bool
}

// IdentityService orquesta proveedor y provisioning.
type IdentityService interface {
	SignUp(ctx context.Context, in dto.SignupRequest) (SignupResult, error)
	Login(ctx context.Context, in dto.LoginRequest) (string, error)
	SetUsername(ctx context.Context, id auth.Identity, token string, in dto.SetUsernameRequest) (dto.UserDTO, error)
	// Describe arma la vista del usuario autenticado. Sin profile, username vacío.
	Describe(ctx context.Context, id auth.Identity, token string) (dto.UserDTO, error)
	DeleteProfile(ctx context.Context, id auth.Identity, token string) error
}

type identityService struct {
	provider    Provider
	provisioner *auth.Provisioner
	hook        auth.LoginHook
}

func NewIdentityService(d Deps) IdentityService {
	hook := d.LoginHook
	if hook == nil && d.Provisioner != nil {
		hook = d.Provisioner.Hook()
	}
	return &identityService{provider: d.Provider, provisioner: d.Provisioner, hook: hook}
}

// providerMessage devuelve el mensaje del proveedor para errores 4xx; vacío en otro caso.
func providerMessage(err error) string {
	var apiErr *supabase.APIError
	if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
		return apiErr.Message
	}
	return ""
}

// ProviderError envuelve una falla del proveedor con su mensaje visible (si es 4xx).
type ProviderError struct {
	Kind    error
	Message string
	Err     error
}

func (e *ProviderError) Error() string { return e.Kind.Error() + ": " + e.Err.Error() }
func (e *ProviderError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func (s *identityService) SignUp(ctx context.Context, in dto.SignupRequest) (SignupResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("Identity.SignUp"))

	res, err := s.provider.SignUp(ctx, in.Email, in.Password)
	if err != nil {
		log.Warn("provider signup failed", logger.Email(in.Email), logger.Err(err))
		return SignupResult{}, &ProviderError{Kind: ErrSignupFailed, Message: providerMessage(err), Err: err}
	}

	out := SignupResult{
		User: dto.UserDTO{ID: res.User.ID, Username: in.Username, Email: firstNonEmpty(res.User.Email, in.Email)},
	}
	if res.Session == nil {
		out.Pending = true
		log.Info("signup pending confirmation", logger.UserID(res.User.ID))
		return out, nil
	}

	id := auth.Identity{Subject: res.User.ID, Email: out.User.Email, Roles: []string{auth.RoleUser}}
	profile, err := s.provisioner.Ensure(ctx, auth.ProvisionRequest{
		Identity: id,
		Token:    res.Session.AccessToken,
		Username: in.Username,
		Email:    out.User.Email,
	})
	if err != nil {
		return SignupResult{}, err
	}
	out.User.Username = profile.Username
	out.AccessToken = res.Session.AccessToken
	return out, nil
}

func (s *identityService) Login(ctx context.Context, in dto.LoginRequest) (string, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("Identity.Login"))

	sess, err := s.provider.PasswordLogin(ctx, in.Email, in.Password)
	if err != nil {
		log.Info("provider login failed", logger.Email(in.Email), logger.Err(err))
		return "", &ProviderError{Kind: ErrLoginFailed, Message: providerMessage(err), Err: err}
	}

	id := auth.Identity{Subject: sess.User.ID, Email: sess.User.Email, Roles: []string{auth.RoleUser}}
	if s.hook != nil {
		if err := s.hook(auth.WithBearer(ctx, sess.AccessToken), id, sess.Raw); err != nil {
			return "", fmt.Errorf("%w: %v", auth.ErrProvisioningFailed, err)
		}
	}
	log.Info("remote login ok", logger.UserID(id.Subject))
	return sess.AccessToken, nil
}

func (s *identityService) SetUsername(ctx context.Context, id auth.Identity, token string, in dto.SetUsernameRequest) (dto.UserDTO, error) {
	if in.SupabaseUID != "" && in.SupabaseUID != id.Subject {
		return dto.UserDTO{}, ErrSubjectMismatch
	}
	profile, err := s.provisioner.Ensure(ctx, auth.ProvisionRequest{
		Identity: id,
		Token:    token,
		Username: in.Username,
		Email:    in.Email,
	})
	if err != nil {
		return dto.UserDTO{}, err
	}
	return dto.UserDTO{ID: id.Subject, Username: profile.Username, Email: firstNonEmpty(profile.Email, id.Email)}, nil
}

func (s *identityService) Describe(ctx context.Context, id auth.Identity, token string) (dto.UserDTO, error) {
	out := dto.UserDTO{ID: id.Subject, Email: id.Email}
	p, err := s.provider.FetchProfile(ctx, id.Subject, token)
	switch {
	case err == nil:
		out.Username = p.Username
	case errors.Is(err, supabase.ErrProfileNotFound):
		// sin profile todavía
	default:
		return dto.UserDTO{}, err
	}
	return out, nil
}

func (s *identityService) DeleteProfile(ctx context.Context, id auth.Identity, token string) error {
	if err := s.provider.DeleteProfile(ctx, id.Subject, token); err != nil {
		return err
	}
	logger.From(ctx).Info("profile deleted", logger.Layer("service"), logger.UserID(id.Subject))
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
