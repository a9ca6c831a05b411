package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/para/internal/credentials"
	dto "github.com/dropDatabas3/para/internal/http/dto/users"
	"github.com/dropDatabas3/para/internal/jwt"
	"github.com/dropDatabas3/para/internal/observability/logger"
	"github.com/dropDatabas3/para/internal/store"
)

var (
	ErrAccountGone      = errors.New("account no longer exists")
	ErrTokenIssueFailed = errors.New("failed to issue token")
)

// AccountService opera sobre cuentas locales.
type AccountService interface {
	Register(ctx context.Context, in dto.RegisterRequest) (*store.UserAccount, error)
	// Login valida credenciales y emite un token cuyo subject es el username.
	Login(ctx context.Context, in dto.LoginRequest) (jwt.LocalToken, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	// FetchUsername resuelve el username del subject autenticado.
	FetchUsername(ctx context.Context, subject string) (string, error)
}

type accountService struct {
	creds  *credentials.Service
	signer *jwt.Signer
}

func NewAccountService(d Deps) AccountService {
	return &accountService{creds: d.Credentials, signer: d.Signer}
}

func (s *accountService) Register(ctx context.Context, in dto.RegisterRequest) (*store.UserAccount, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("Accounts.Register"))

	acct, err := s.creds.Register(ctx, credentials.RegisterInput{
		Username: in.Username,
		Email:    in.Email,
		Password: in.Password,
	})
	if err != nil {
		return nil, err
	}
	log.Info("account registered", logger.UserID(acct.ID), logger.Username(acct.Username), logger.Email(acct.Email))
	return acct, nil
}

func (s *accountService) Login(ctx context.Context, in dto.LoginRequest) (jwt.LocalToken, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("Accounts.Login"))

	acct, err := s.creds.Authenticate(ctx, in.Username, in.Password)
	if err != nil {
		if errors.Is(err, credentials.ErrInvalidCredentials) {
			log.Info("login rejected", logger.Username(in.Username))
		}
		return jwt.LocalToken{}, err
	}

	tok, err := s.signer.Issue(acct.Username, jwt.Extra{Role: acct.Role, Email: acct.Email})
	if err != nil {
		return jwt.LocalToken{}, fmt.Errorf("%w: %v", ErrTokenIssueFailed, err)
	}
	log.Info("login ok", logger.UserID(acct.ID), logger.Username(acct.Username))
	return tok, nil
}

func (s *accountService) UsernameTaken(ctx context.Context, username string) (bool, error) {
	return s.creds.UsernameTaken(ctx, username)
}

func (s *accountService) EmailTaken(ctx context.Context, email string) (bool, error) {
	return s.creds.EmailTaken(ctx, email)
}

func (s *accountService) FetchUsername(ctx context.Context, subject string) (string, error) {
	acct, err := s.creds.Lookup(ctx, subject)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrAccountGone
	}
	if err != nil {
		return "", err
	}
	return acct.Username, nil
}
