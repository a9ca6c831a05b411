package supabase

import "encoding/json"

// User es el usuario de GET /auth/v1/user.
type User struct {
	ID           string          `json:"id"`
	Email        string          `json:"email"`
	Role         string          `json:"role,omitempty"`
	UserMetadata json.RawMessage `json:"user_metadata,omitempty"`

	// Raw es el body completo devuelto por el proveedor.
	Raw json.RawMessage `json:"-"`
}

// Session es el resultado de un login o signup con confirmación automática.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`

	Raw json.RawMessage `json:"-"`
}

// SignUpResult es el resultado de POST /auth/v1/signup.
// Session es nil cuando el proyecto exige confirmar el email.
type SignUpResult struct {
	User    User
	Session *Session
}

// Profile es la fila de la tabla profiles, keyed por el id del usuario del proveedor.
type Profile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}
