package auth

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/para/internal/config"
	"github.com/dropDatabas3/para/internal/jwt"
	"github.com/dropDatabas3/para/internal/supabase"
)

// Verifier resuelve un bearer token en una Identity.
// Hay exactamente uno activo por proceso.
type Verifier interface {
	Mode() string
	Verify(ctx context.Context, raw string) (Identity, error)
}

// LocalVerifier valida tokens HS256 emitidos por este servicio.
type LocalVerifier struct {
	Signer *jwt.Signer
}

func (LocalVerifier) Mode() string { return config.ModeLocal }

func (v LocalVerifier) Verify(_ context.Context, raw string) (Identity, error) {
	c, err := v.Signer.Verify(raw)
	if err != nil {
		return Identity{}, err
	}
	role := c.Role
	if role == "" {
		role = RoleUser
	}
	return Identity{Subject: c.Subject, Email: c.Email, Roles: []string{role}}, nil
}

// TokenResolver introspecta tokens del proveedor remoto.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (supabase.User, error)
}

// RemoteVerifier delega en el proveedor; toda identidad remota tiene rol USER.
type RemoteVerifier struct {
	Resolver TokenResolver
}

func (RemoteVerifier) Mode() string { return config.ModeRemote }

func (v RemoteVerifier) Verify(ctx context.Context, raw string) (Identity, error) {
	u, err := v.Resolver.ResolveToken(ctx, raw)
	if err != nil {
		return Identity{}, err
	}
	return Identity{Subject: u.ID, Email: u.Email, Roles: []string{RoleUser}}, nil
}

// NewVerifier elige el verificador según mode. No hay fallback entre modos.
func NewVerifier(mode string, signer *jwt.Signer, resolver TokenResolver) (Verifier, error) {
	switch mode {
	case config.ModeLocal:
		if signer == nil {
			return nil, fmt.Errorf("auth: mode %q requires a signer", mode)
		}
		return LocalVerifier{Signer: signer}, nil
	case config.ModeRemote:
		if resolver == nil {
			return nil, fmt.Errorf("auth: mode %q requires a token resolver", mode)
		}
		return RemoteVerifier{Resolver: resolver}, nil
	default:
		return nil, fmt.Errorf("auth: unknown mode %q", mode)
	}
}
