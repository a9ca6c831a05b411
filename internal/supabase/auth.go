package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dropDatabas3/para/internal/observability/logger"
)

// ResolveToken introspecta token contra GET /auth/v1/user.
// Cualquier falla (token vacío, transporte, timeout, no-2xx, body sin id) es
// ErrRemoteVerificationFailed.
func (c *Client) ResolveToken(ctx context.Context, token string) (User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return User{}, fmt.Errorf("%w: empty token", ErrRemoteVerificationFailed)
	}

	r, err := c.do(ctx, "resolve_token", http.MethodGet, c.endpoint("/auth/v1/user", nil), token, nil, nil)
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrRemoteVerificationFailed, err)
	}
	if !r.ok() {
		return User{}, fmt.Errorf("%w: %v", ErrRemoteVerificationFailed, apiError("resolve_token", r))
	}

	var u User
	if err := json.Unmarshal(r.body, &u); err != nil {
		return User{}, fmt.Errorf("%w: decode user: %v", ErrRemoteVerificationFailed, err)
	}
	if strings.TrimSpace(u.ID) == "" {
		return User{}, fmt.Errorf("%w: user without id", ErrRemoteVerificationFailed)
	}
	u.Raw = append(json.RawMessage(nil), r.body...)
	return u, nil
}

type credentialsPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUp crea el usuario en el proveedor.
func (c *Client) SignUp(ctx context.Context, email, password string) (*SignUpResult, error) {
	r, err := c.do(ctx, "signup", http.MethodPost, c.endpoint("/auth/v1/signup", nil), "",
		credentialsPayload{Email: email, Password: password}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if !r.ok() {
		return nil, apiError("signup", r)
	}

	// Con auto-confirm viene una sesión con user; si no, viene el user solo.
	var body struct {
		Session
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(r.body, &body); err != nil {
		return nil, fmt.Errorf("%w: signup: %v", ErrMalformedResponse, err)
	}

	res := &SignUpResult{User: body.User}
	if res.User.ID == "" {
		res.User = User{ID: body.ID, Email: body.Email}
	}
	if res.User.ID == "" {
		return nil, fmt.Errorf("%w: signup response without user id", ErrMalformedResponse)
	}
	res.User.Raw = append(json.RawMessage(nil), r.body...)

	if body.AccessToken != "" {
		s := body.Session
		s.User = res.User
		s.Raw = res.User.Raw
		res.Session = &s
	}

	c.log.Info("provider signup ok",
		logger.UserID(res.User.ID),
		logger.Any("session", res.Session != nil),
	)
	return res, nil
}

// PasswordLogin hace POST /auth/v1/token?grant_type=password.
func (c *Client) PasswordLogin(ctx context.Context, email, password string) (*Session, error) {
	target := c.endpoint("/auth/v1/token", url.Values{"grant_type": []string{"password"}})
	r, err := c.do(ctx, "password_login", http.MethodPost, target, "",
		credentialsPayload{Email: email, Password: password}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if !r.ok() {
		return nil, apiError("password_login", r)
	}

	var s Session
	if err := json.Unmarshal(r.body, &s); err != nil {
		return nil, fmt.Errorf("%w: login: %v", ErrMalformedResponse, err)
	}
	if s.AccessToken == "" {
		return nil, fmt.Errorf("%w: login response without access_token", ErrMalformedResponse)
	}
	if s.User.ID == "" {
		return nil, fmt.Errorf("%w: login response without user id", ErrMalformedResponse)
	}
	s.Raw = append(json.RawMessage(nil), r.body...)
	s.User.Raw = s.Raw
	return &s, nil
}
