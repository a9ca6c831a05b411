package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/dropDatabas3/para/internal/observability/logger"
)

const profilesPath = "/rest/v1/profiles"

var errProfileMissing = errors.New("empty profile result")

// FetchProfile busca el profile de userID. El profile puede tardar en replicarse
// después del signup, así que reintenta hasta FetchAttempts veces con espera
// constante; no espera después del último intento. Agotados los intentos
// devuelve ErrProfileNotFound y el caller no debe reintentar.
// Si ctx se cancela corta la espera y devuelve el error del contexto.
func (c *Client) FetchProfile(ctx context.Context, userID, token string) (Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return Profile{}, fmt.Errorf("%w: empty user id", ErrProfileNotFound)
	}
	target := c.endpoint(profilesPath, profileQuery(userID))

	var attempt int
	op := func() (Profile, error) {
		attempt++
		c.log.Debug("fetching profile", logger.UserID(userID), logger.Attempt(attempt))

		r, err := c.do(ctx, "fetch_profile", http.MethodGet, target, token, nil, nil)
		if err != nil {
			if ctx.Err() != nil {
				return Profile{}, backoff.Permanent(ctx.Err())
			}
			return Profile{}, err
		}
		if !r.ok() {
			return Profile{}, apiError("fetch_profile", r)
		}

		var rows []Profile
		if err := json.Unmarshal(r.body, &rows); err != nil {
			return Profile{}, fmt.Errorf("%w: profiles: %v", ErrMalformedResponse, err)
		}
		if len(rows) == 0 {
			return Profile{}, errProfileMissing
		}
		if strings.TrimSpace(rows[0].ID) == "" {
			return Profile{}, backoff.Permanent(fmt.Errorf("%w: profile row without id", ErrMalformedResponse))
		}
		return rows[0], nil
	}

	p, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(c.fetchDelay)),
		backoff.WithMaxTries(uint(c.fetchAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.log.Info("profile not available yet, retrying",
				logger.UserID(userID), logger.Attempt(attempt), logger.Err(err), logger.Duration(next))
		}),
	)
	switch {
	case err == nil:
		return p, nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Profile{}, err
	case errors.Is(err, ErrMalformedResponse):
		return Profile{}, err
	default:
		c.log.Warn("profile not found after retries", logger.UserID(userID), logger.Attempt(attempt), logger.Err(err))
		return Profile{}, fmt.Errorf("%w: %d attempts: %v", ErrProfileNotFound, attempt, err)
	}
}

// CreateProfile inserta el profile. 409 (ya existe) cuenta como éxito.
func (c *Client) CreateProfile(ctx context.Context, p Profile, token string) error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("%w: profile without id", ErrRequestFailed)
	}
	r, err := c.do(ctx, "create_profile", http.MethodPost, c.endpoint(profilesPath, nil), token, p,
		http.Header{"Prefer": []string{"return=minimal"}})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if r.status == http.StatusConflict {
		c.log.Info("profile already exists", logger.UserID(p.ID))
		return nil
	}
	if !r.ok() {
		return apiError("create_profile", r)
	}
	return nil
}

type profilePatch struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// UpdateProfile aplica PATCH sobre id=eq.<id>. Campos vacíos no se tocan.
func (c *Client) UpdateProfile(ctx context.Context, p Profile, token string) error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("%w: profile without id", ErrRequestFailed)
	}
	patch := profilePatch{Username: p.Username, Email: p.Email}
	if patch == (profilePatch{}) {
		return nil
	}
	r, err := c.do(ctx, "update_profile", http.MethodPatch, c.endpoint(profilesPath, profileQuery(p.ID)), token, patch,
		http.Header{"Prefer": []string{"return=minimal"}})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if !r.ok() {
		return apiError("update_profile", r)
	}
	return nil
}

// DeleteProfile borra el profile de userID.
func (c *Client) DeleteProfile(ctx context.Context, userID, token string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: empty user id", ErrRequestFailed)
	}
	r, err := c.do(ctx, "delete_profile", http.MethodDelete, c.endpoint(profilesPath, profileQuery(userID)), token, nil, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if !r.ok() {
		return apiError("delete_profile", r)
	}
	return nil
}
