// Package credentials registra y autentica cuentas locales (username + password).
package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dropDatabas3/para/internal/security/password"
	"github.com/dropDatabas3/para/internal/store"
)

// DefaultRole se asigna a toda cuenta nueva.
const DefaultRole = "USER"

var (
	ErrDuplicateAccount   = errors.New("duplicate account")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWeakPassword       = errors.New("weak password")
)

// DuplicateAccountError indica el campo en conflicto. Is(ErrDuplicateAccount) es true.
type DuplicateAccountError struct {
	Field string
}

func (e *DuplicateAccountError) Error() string {
	return fmt.Sprintf("%s already taken", e.Field)
}

func (e *DuplicateAccountError) Is(target error) bool { return target == ErrDuplicateAccount }

// WeakPasswordError lleva los motivos legibles. Is(ErrWeakPassword) es true.
type WeakPasswordError struct {
	Reasons []string
}

func (e *WeakPasswordError) Error() string {
	return "weak password: " + strings.Join(e.Reasons, "; ")
}

func (e *WeakPasswordError) Is(target error) bool { return target == ErrWeakPassword }

// RegisterInput datos de alta.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Service aplica la política de contraseñas y hashea antes de persistir.
type Service struct {
	users     store.UserRepository
	policy    password.Policy
	blacklist *password.Blacklist
	hasher    password.Hasher
}

// NewService arma el servicio. blacklist puede ser nil.
func NewService(users store.UserRepository, policy password.Policy, blacklist *password.Blacklist, hasher password.Hasher) *Service {
	return &Service{users: users, policy: policy, blacklist: blacklist, hasher: hasher}
}

// Register valida la contraseña, chequea unicidad y guarda la cuenta con rol DefaultRole.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*store.UserAccount, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	if ok, reasons := s.policy.Validate(in.Password); !ok {
		msgs := make([]string, 0, len(reasons))
		for _, r := range reasons {
			msgs = append(msgs, s.policy.Describe(r))
		}
		return nil, &WeakPasswordError{Reasons: msgs}
	}
	if s.blacklist.Contains(in.Password) {
		return nil, &WeakPasswordError{Reasons: []string{s.policy.Describe("blacklisted")}}
	}

	// Chequeo previo para dar un mensaje preciso; el índice único sigue siendo la garantía.
	if taken, err := s.UsernameTaken(ctx, in.Username); err != nil {
		return nil, err
	} else if taken {
		return nil, &DuplicateAccountError{Field: "username"}
	}
	if taken, err := s.EmailTaken(ctx, in.Email); err != nil {
		return nil, err
	} else if taken {
		return nil, &DuplicateAccountError{Field: "email"}
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("credentials: hash: %w", err)
	}

	u := &store.UserAccount{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         DefaultRole,
	}
	if err := s.users.Create(ctx, u); err != nil {
		var dup *store.DuplicateError
		if errors.As(err, &dup) {
			return nil, &DuplicateAccountError{Field: dup.Field}
		}
		return nil, fmt.Errorf("credentials: create: %w", err)
	}
	return u, nil
}

// Authenticate retorna la cuenta si username y password coinciden.
// Usuario inexistente y password incorrecta devuelven el mismo ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, plain string) (*store.UserAccount, error) {
	u, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("credentials: lookup: %w", err)
	}

	switch err := s.hasher.Verify(u.PasswordHash, plain); {
	case err == nil:
		return u, nil
	case errors.Is(err, password.ErrMismatch):
		return nil, ErrInvalidCredentials
	default:
		return nil, fmt.Errorf("credentials: verify: %w", err)
	}
}

// UsernameTaken reporta si existe una cuenta con ese username.
func (s *Service) UsernameTaken(ctx context.Context, username string) (bool, error) {
	return exists(s.users.GetByUsername(ctx, strings.TrimSpace(username)))
}

// EmailTaken reporta si existe una cuenta con ese email.
func (s *Service) EmailTaken(ctx context.Context, email string) (bool, error) {
	return exists(s.users.GetByEmail(ctx, strings.TrimSpace(email)))
}

// Lookup busca una cuenta por username.
func (s *Service) Lookup(ctx context.Context, username string) (*store.UserAccount, error) {
	return s.users.GetByUsername(ctx, strings.TrimSpace(username))
}

func exists(_ *store.UserAccount, err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, store.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("credentials: lookup: %w", err)
	}
}
