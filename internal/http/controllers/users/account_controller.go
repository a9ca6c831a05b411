package users

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/dropDatabas3/para/internal/auth"
	"github.com/dropDatabas3/para/internal/credentials"
	dto "github.com/dropDatabas3/para/internal/http/dto/users"
	httperrors "github.com/dropDatabas3/para/internal/http/errors"
	"github.com/dropDatabas3/para/internal/http/helpers"
	svc "github.com/dropDatabas3/para/internal/http/services/users"
	"github.com/dropDatabas3/para/internal/observability/logger"
)

// AccountController maneja /api/users/*.
type AccountController struct {
	service svc.AccountService
}

func NewAccountController(service svc.AccountService) *AccountController {
	return &AccountController{service: service}
}

// Register maneja POST /api/users/register
func (c *AccountController) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("AccountController.Register"))

	var req dto.RegisterRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		httperrors.WriteError(w, httperrors.ErrValidation.WithDetail(err.Error()))
		return
	}

	acct, err := c.service.Register(ctx, req)
	if err != nil {
		c.handleError(w, err, log)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.UserResponse{
		ID:        acct.ID,
		Username:  acct.Username,
		Email:     acct.Email,
		Role:      acct.Role,
		CreatedAt: acct.CreatedAt,
	})
}

// Login maneja POST /api/users/login. El token va en el body y en el header Authorization.
func (c *AccountController) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("AccountController.Login"))

	var req dto.LoginRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if err := req.Validate(); err != nil {
		httperrors.WriteError(w, httperrors.ErrValidation.WithDetail(err.Error()))
		return
	}

	tok, err := c.service.Login(ctx, req)
	if err != nil {
		c.handleError(w, err, log)
		return
	}

	w.Header().Set("Authorization", "Bearer "+tok.Raw)
	helpers.WriteJSON(w, http.StatusOK, dto.LoginResponse{
		Token:     tok.Raw,
		TokenType: "Bearer",
		ExpiresIn: int64(tok.ExpiresAt.Sub(tok.IssuedAt).Seconds()),
	})
}

// CheckUsername maneja GET /api/users/check-username?username=
func (c *AccountController) CheckUsername(w http.ResponseWriter, r *http.Request) {
	c.checkExists(w, r, "username", c.service.UsernameTaken)
}

// CheckEmail maneja GET /api/users/check-email?email=
func (c *AccountController) CheckEmail(w http.ResponseWriter, r *http.Request) {
	c.checkExists(w, r, "email", c.service.EmailTaken)
}

func (c *AccountController) checkExists(w http.ResponseWriter, r *http.Request, param string, lookup func(ctx context.Context, v string) (bool, error)) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("AccountController.Check"), logger.Any("param", param))

	v := strings.TrimSpace(r.URL.Query().Get(param))
	if v == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail(param+" is required"))
		return
	}
	exists, err := lookup(ctx, v)
	if err != nil {
		c.handleError(w, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.ExistsResponse{Exists: exists})
}

// FetchUsername maneja GET /api/users/fetch-username (protegido).
func (c *AccountController) FetchUsername(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("AccountController.FetchUsername"))

	id, ok := auth.IdentityFrom(ctx)
	if !ok {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}
	username, err := c.service.FetchUsername(ctx, id.Subject)
	if err != nil {
		c.handleError(w, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.UsernameResponse{Username: username})
}

func (c *AccountController) handleError(w http.ResponseWriter, err error, log *zap.Logger) {
	var weak *credentials.WeakPasswordError
	var dup *credentials.DuplicateAccountError

	switch {
	case errors.As(err, &weak):
		httperrors.WriteError(w, httperrors.ErrWeakPassword.WithDetail(strings.Join(weak.Reasons, "; ")))
	case errors.As(err, &dup):
		httperrors.WriteError(w, httperrors.ErrDuplicateAccount.WithDetail(dup.Error()))
	case errors.Is(err, credentials.ErrInvalidCredentials):
		httperrors.WriteError(w, httperrors.ErrInvalidCredentials)
	case errors.Is(err, svc.ErrAccountGone):
		httperrors.WriteError(w, httperrors.ErrUnauthorized.WithDetail("account no longer exists"))
	default:
		log.Error("unexpected account error", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
	}
}
