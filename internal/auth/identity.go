// Package auth contiene la identidad por request, los verificadores de tokens,
// la política de rutas públicas y el flujo de provisioning de profiles remotos.
package auth

import (
	"context"
	"slices"
)

// RoleUser es el rol por defecto.
const RoleUser = "USER"

// Identity es el principal resuelto para un request. No se persiste.
type Identity struct {
	Subject string   `json:"subject"`
	Email   string   `json:"email,omitempty"`
	Roles   []string `json:"roles"`
}

// HasRole reporta si la identidad tiene role.
func (i Identity) HasRole(role string) bool {
	return slices.Contains(i.Roles, role)
}

type ctxKey string

const (
	ctxIdentityKey ctxKey = "identity"
	ctxBearerKey   ctxKey = "bearer"
)

// WithIdentity inyecta la identidad en el contexto.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxIdentityKey, id)
}

// IdentityFrom obtiene la identidad del contexto.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxIdentityKey).(Identity)
	return id, ok
}

// WithBearer guarda el token crudo con el que se resolvió la identidad.
// Los handlers remotos lo reenvían al proveedor.
func WithBearer(ctx context.Context, raw string) context.Context {
	return context.WithValue(ctx, ctxBearerKey, raw)
}

// BearerFrom obtiene el token crudo; "" si no hay.
func BearerFrom(ctx context.Context) string {
	s, _ := ctx.Value(ctxBearerKey).(string)
	return s
}
