// Package users contiene los services de cuentas locales (registro, login con
// token HS256 y lecturas de disponibilidad).
package users

import (
	"github.com/dropDatabas3/para/internal/credentials"
	"github.com/dropDatabas3/para/internal/jwt"
)

// Deps contiene las dependencias para crear los services de cuentas.
type Deps struct {
	Credentials *credentials.Service
	Signer      *jwt.Signer
}

// Services agrupa los services del dominio users.
type Services struct {
	Accounts AccountService
}

func NewServices(d Deps) Services {
	return Services{
		Accounts: NewAccountService(d),
	}
}
