// Package me expone la identidad del request (GET /api/me).
package me

import (
	"net/http"

	"github.com/dropDatabas3/para/internal/auth"
	httperrors "github.com/dropDatabas3/para/internal/http/errors"
	"github.com/dropDatabas3/para/internal/http/helpers"
)

type MeController struct {
	mode string
}

func NewMeController(mode string) *MeController {
	return &MeController{mode: mode}
}

type meResponse struct {
	auth.Identity
	Mode string `json:"mode"`
}

func (c *MeController) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFrom(r.Context())
	if !ok {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, meResponse{Identity: id, Mode: c.mode})
}
