// Package store define las cuentas locales y el registry de adaptadores de almacenamiento.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indica que la cuenta no existe.
	ErrNotFound = errors.New("account not found")
	// ErrDuplicate indica colisión de username o email.
	ErrDuplicate = errors.New("account already exists")
)

// DuplicateError indica qué campo colisionó. Is(ErrDuplicate) es true.
type DuplicateError struct {
	Field string // "username" | "email"
}

func (e *DuplicateError) Error() string { return e.Field + " already taken" }

func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicate }

// UserAccount es una cuenta local. Username y Email son únicos; PasswordHash nunca es texto plano.
type UserAccount struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserRepository persiste cuentas locales.
type UserRepository interface {
	// Create inserta la cuenta; colisiones devuelven *DuplicateError.
	Create(ctx context.Context, u *UserAccount) error
	GetByUsername(ctx context.Context, username string) (*UserAccount, error)
	GetByEmail(ctx context.Context, email string) (*UserAccount, error)
}
