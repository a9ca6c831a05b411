// Package remote contiene los services respaldados por el proveedor de identidad:
// signup, login por password, username y validación de tokens remotos.
package remote

import (
	"context"

	"github.com/dropDatabas3/para/internal/auth"
	"github.com/dropDatabas3/para/internal/supabase"
)

// Provider es la porción del cliente del proveedor que usan estos services.
type Provider interface {
	SignUp(ctx context.Context, email, password string) (*supabase.SignUpResult, error)
	PasswordLogin(ctx context.Context, email, password string) (*supabase.Session, error)
	FetchProfile(ctx context.Context, userID, token string) (supabase.Profile, error)
	DeleteProfile(ctx context.Context, userID, token string) error
}

// Deps contiene las dependencias para crear los services remotos.
type Deps struct {
	Provider    Provider
	Provisioner *auth.Provisioner
	// LoginHook corre después de cada login exitoso; nil usa Provisioner.Hook().
	LoginHook auth.LoginHook
}

type Services struct {
	Identity IdentityService
}

func NewServices(d Deps) Services {
	return Services{
		Identity: NewIdentityService(d),
	}
}
