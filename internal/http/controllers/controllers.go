// Package controllers es el composition root de los controllers HTTP:
// services.New(deps) -> controllers.New(svcs) -> router.New(...).
package controllers

import (
	"github.com/dropDatabas3/para/internal/http/controllers/health"
	"github.com/dropDatabas3/para/internal/http/controllers/me"
	"github.com/dropDatabas3/para/internal/http/controllers/remote"
	"github.com/dropDatabas3/para/internal/http/controllers/users"
	"github.com/dropDatabas3/para/internal/http/services"
)

type Controllers struct {
	Users  *users.Controllers  // nil en modo remoto
	Remote *remote.Controllers // nil en modo local
	Health *health.HealthController
	Me     *me.MeController
}

func New(s *services.Services, mode string, checks map[string]health.Check) *Controllers {
	c := &Controllers{
		Health: health.NewHealthController(checks),
		Me:     me.NewMeController(mode),
	}
	if s.Users != nil {
		c.Users = users.NewControllers(*s.Users)
	}
	if s.Remote != nil {
		c.Remote = remote.NewControllers(*s.Remote)
	}
	return c
}
