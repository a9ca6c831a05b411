// Package services es el composition root de los services HTTP.
//
// Cada dominio vive en su sub-paquete (services/{dominio}) con su Deps y su
// aggregator Services. Acá se arman solo los dominios del modo activo: users en
// modo local, remote en modo remoto.
package services

import (
	"github.com/dropDatabas3/para/internal/auth"
	"github.com/dropDatabas3/para/internal/credentials"
	"github.com/dropDatabas3/para/internal/http/services/remote"
	"github.com/dropDatabas3/para/internal/http/services/users"
	"github.com/dropDatabas3/para/internal/jwt"
)

// Deps contiene las dependencias base para crear los services.
type Deps struct {
	// ─── Modo local ───
	Credentials *credentials.Service
	Signer      *jwt.Signer

	// ─── Modo remoto ───
	Provider    remote.Provider
	Provisioner *auth.Provisioner
	LoginHook   auth.LoginHook
}

// Services agrupa los sub-services. Los dominios del modo inactivo quedan nil.
type Services struct {
	Users  *users.Services
	Remote *remote.Services
}

func New(d Deps) *Services {
	s := &Services{}
	if d.Credentials != nil && d.Signer != nil {
		u := users.NewServices(users.Deps{Credentials: d.Credentials, Signer: d.Signer})
		s.Users = &u
	}
	if d.Provider != nil && d.Provisioner != nil {
		r := remote.NewServices(remote.Deps{
			Provider:    d.Provider,
			Provisioner: d.Provisioner,
			LoginHook:   d.LoginHook,
		})
		s.Remote = &r
	}
	return s
}
