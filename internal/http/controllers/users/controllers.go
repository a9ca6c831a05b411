// Package users contiene los controllers de cuentas locales (/api/users).
package users

import svc "github.com/dropDatabas3/para/internal/http/services/users"

// Controllers agrupa los controllers del dominio users.
type Controllers struct {
	Accounts *AccountController
}

func NewControllers(s svc.Services) *Controllers {
	return &Controllers{
		Accounts: NewAccountController(s.Accounts),
	}
}
