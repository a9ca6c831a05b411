// Package remote contiene DTOs para los endpoints respaldados por el proveedor
// de identidad (/api/auth).
package remote

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// SignupRequest es el body de POST /api/auth/signup.
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *SignupRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)
}

func (r SignupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(3, 50)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 128)),
	)
}

// LoginRequest es el body de POST /api/auth/login. El proveedor identifica por email.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// SetUsernameRequest es el body de POST /api/auth/set-username.
// SupabaseUID es opcional; si viene debe coincidir con la identidad del token.
type SetUsernameRequest struct {
	SupabaseUID string `json:"supabaseUid"`
	Username    string `json:"username"`
	Email       string `json:"email"`
}

func (r *SetUsernameRequest) Normalize() {
	r.SupabaseUID = strings.TrimSpace(r.SupabaseUID)
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)
}

func (r SetUsernameRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(3, 50)),
		validation.Field(&r.Email, is.Email),
	)
}

// UserDTO es la vista de un usuario remoto.
type UserDTO struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// SignupResponse: AccessToken vacío cuando el proveedor exige confirmar el email.
type SignupResponse struct {
	Message     string  `json:"message"`
	User        UserDTO `json:"user"`
	AccessToken string  `json:"accessToken,omitempty"`
}

type LoginResponse struct {
	AccessToken string `json:"accessToken"`
}

type SetUsernameResponse struct {
	Message     string  `json:"message"`
	AccessToken string  `json:"accessToken"`
	User        UserDTO `json:"user"`
}

type ValidateTokenResponse struct {
	Valid bool    `json:"valid"`
	User  UserDTO `json:"user"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
