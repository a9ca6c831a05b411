package remote

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/dropDatabas3/para/internal/auth"
	dto "github.com/dropDatabas3/para/internal/http/dto/remote"
	httperrors "github.com/dropDatabas3/para/internal/http/errors"
	"github.com/dropDatabas3/para/internal/http/helpers"
	svc "github.com/dropDatabas3/para/internal/http/services/remote"
	"github.com/dropDatabas3/para/internal/observability/logger"
)

// IdentityController maneja /api/auth/*.
type IdentityController struct {
	service svc.IdentityService
}

func NewIdentityController(service svc.IdentityService) *IdentityController {
	return &IdentityController{service: service}
}

// SignUp maneja POST /api/auth/signup.
// 200 con accessToken si el proveedor abrió sesión; 202 si falta confirmar el email.
func (c *IdentityController) SignUp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("IdentityController.SignUp"))

	var req dto.SignupRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		httperrors.WriteError(w, httperrors.ErrValidation.WithDetail(err.Error()))
		return
	}

	res, err := c.service.SignUp(ctx, req)
	if err != nil {
		c.handleError(w, err, log)
		return
	}

	if res.Pending {
		helpers.WriteJSON(w, http.StatusAccepted, dto.SignupResponse{
			Message: "Signup successful, confirm your email to continue",
			User:    res.User,
		})
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.SignupResponse{
		Message:     "Signup successful",
		User:        res.User,
		AccessToken: res.AccessToken,
	})
}

// Login maneja POST /api/auth/login
func (c *IdentityController) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("IdentityController.Login"))

	var req dto.LoginRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := req.Validate(); err != nil {
		httperrors.WriteError(w, httperrors.ErrValidation.WithDetail(err.Error()))
		return
	}

	token, err := c.service.Login(ctx, req)
	if err != nil {
		c.handleError(w, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.LoginResponse{AccessToken: token})
}

// SetUsername maneja POST /api/auth/set-username (protegido).
func (c *IdentityController) SetUsername(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("IdentityController.SetUsername"))

	id, ok := auth.IdentityFrom(ctx)
	if !ok {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	var req dto.SetUsernameRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		httperrors.WriteError(w, httperrors.ErrValidation.WithDetail(err.Error()))
		return
	}

	token := auth.BearerFrom(ctx)
	user, err := c.service.SetUsername(ctx, id, token, req)
	if err != nil {
		c.handleError(w, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.SetUsernameResponse{
		Message:     "Username set successfully",
		AccessToken: token,
		User:        user,
	})
}

// ValidateToken maneja GET /api/auth/validate-token (protegido).
// Si llegó acá el token ya fue verificado por el middleware.
func (c *IdentityController) ValidateToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("IdentityController.ValidateToken"))

	id, ok := auth.IdentityFrom(ctx)
	if !ok {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}
	user, err := c.service.Describe(ctx, id, auth.BearerFrom(ctx))
	if err != nil {
		c.handleError(w, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.ValidateTokenResponse{Valid: true, User: user})
}

// GoogleCallback maneja GET /api/auth/google-callback?code=
// El intercambio del código lo hace el frontend con el proveedor; acá solo se acusa recibo.
func (c *IdentityController) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if strings.TrimSpace(r.URL.Query().Get("code")) == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("code is required"))
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.MessageResponse{Message: "Success"})
}

// DeleteProfile maneja DELETE /api/auth/profile (protegido).
func (c *IdentityController) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("IdentityController.DeleteProfile"))

	id, ok := auth.IdentityFrom(ctx)
	if !ok {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}
	if err := c.service.DeleteProfile(ctx, id, auth.BearerFrom(ctx)); err != nil {
		c.handleError(w, err, log)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *IdentityController) handleError(w http.ResponseWriter, err error, log *zap.Logger) {
	var perr *svc.ProviderError
	if errors.As(err, &perr) {
		switch {
		case errors.Is(perr.Kind, svc.ErrLoginFailed):
			httperrors.WriteError(w, httperrors.ErrLoginFailed.WithDetail(perr.Message))
		case perr.Message != "":
			httperrors.WriteError(w, httperrors.ErrSignupFailed.WithDetail(perr.Message))
		default:
			log.Error("identity provider failure", logger.Err(err))
			httperrors.WriteError(w, httperrors.ErrIdentityProvider)
		}
		return
	}

	switch {
	case errors.Is(err, auth.ErrProvisioningFailed):
		log.Error("provisioning failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrProvisioningFailed)
	case errors.Is(err, svc.ErrSubjectMismatch):
		httperrors.WriteError(w, httperrors.ErrForbidden.WithDetail(err.Error()))
	default:
		log.Error("unexpected identity error", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrIdentityProvider)
	}
}
