// Package remote contiene los controllers de /api/auth (proveedor de identidad).
package remote

import svc "github.com/dropDatabas3/para/internal/http/services/remote"

type Controllers struct {
	Identity *IdentityController
}

func NewControllers(s svc.Services) *Controllers {
	return &Controllers{
		Identity: NewIdentityController(s.Identity),
	}
}
