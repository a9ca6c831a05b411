package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dropDatabas3/para/internal/observability/logger"
	"github.com/dropDatabas3/para/internal/supabase"
)

// ErrProvisioningFailed es la única falla visible del flujo, sea en create o update.
var ErrProvisioningFailed = errors.New("profile provisioning failed")

// LoginHook se invoca después de un login remoto exitoso con la identidad y el
// payload crudo del proveedor.
type LoginHook func(ctx context.Context, id Identity, raw json.RawMessage) error

// ProfileStore es el lado de profiles del proveedor remoto.
type ProfileStore interface {
	FetchProfile(ctx context.Context, userID, token string) (supabase.Profile, error)
	CreateProfile(ctx context.Context, p supabase.Profile, token string) error
	UpdateProfile(ctx context.Context, p supabase.Profile, token string) error
}

// ProvisionRequest pide asegurar el profile de Identity.
// Username y Email son atributos explícitos del caller; vacíos significa "no cambiar".
type ProvisionRequest struct {
	Identity Identity
	Token    string
	Username string
	Email    string
	// FallbackUsername se usa solo al crear cuando no hay Username.
	FallbackUsername string
}

// Provisioner reconcilia la identidad remota con el profile de la aplicación.
// No guarda estado por request: cada Ensure usa su propio ctx y token.
type Provisioner struct {
	profiles ProfileStore
}

func NewProvisioner(profiles ProfileStore) *Provisioner {
	return &Provisioner{profiles: profiles}
}

// Ensure garantiza que exista el profile: lo crea si no aparece tras los
// reintentos del fetch; si existe, lo actualiza solo cuando el caller pasó
// atributos distintos a los guardados. Llamadas concurrentes para el mismo
// usuario corren por separado; CreateProfile toma el 409 como éxito y el
// update es idempotente.
func (p *Provisioner) Ensure(ctx context.Context, req ProvisionRequest) (supabase.Profile, error) {
	if strings.TrimSpace(req.Identity.Subject) == "" {
		return supabase.Profile{}, fmt.Errorf("%w: identity without subject", ErrProvisioningFailed)
	}
	return p.ensure(ctx, req)
}

func (p *Provisioner) ensure(ctx context.Context, req ProvisionRequest) (supabase.Profile, error) {
	log := logger.From(ctx).With(logger.Component("provisioning"), logger.UserID(req.Identity.Subject))
	uid := req.Identity.Subject

	current, err := p.profiles.FetchProfile(ctx, uid, req.Token)
	switch {
	case errors.Is(err, supabase.ErrProfileNotFound):
		created := supabase.Profile{
			ID:       uid,
			Username: firstNonEmpty(req.Username, req.FallbackUsername, emailLocalPart(req.Email), emailLocalPart(req.Identity.Email)),
			Email:    firstNonEmpty(req.Email, req.Identity.Email),
		}
		if err := p.profiles.CreateProfile(ctx, created, req.Token); err != nil {
			log.Warn("profile create failed", logger.Op("create"), logger.Err(err))
			return supabase.Profile{}, fmt.Errorf("%w: %v", ErrProvisioningFailed, err)
		}
		log.Info("profile created", logger.Username(created.Username))
		return created, nil

	case err != nil:
		log.Warn("profile fetch failed", logger.Op("fetch"), logger.Err(err))
		return supabase.Profile{}, fmt.Errorf("%w: %v", ErrProvisioningFailed, err)
	}

	patch := supabase.Profile{ID: uid}
	if req.Username != "" && req.Username != current.Username {
		patch.Username = req.Username
	}
	if req.Email != "" && req.Email != current.Email {
		patch.Email = req.Email
	}
	if patch.Username == "" && patch.Email == "" {
		return current, nil
	}

	if err := p.profiles.UpdateProfile(ctx, patch, req.Token); err != nil {
		log.Warn("profile update failed", logger.Op("update"), logger.Err(err))
		return supabase.Profile{}, fmt.Errorf("%w: %v", ErrProvisioningFailed, err)
	}
	if patch.Username != "" {
		current.Username = patch.Username
	}
	if patch.Email != "" {
		current.Email = patch.Email
	}
	log.Info("profile updated", logger.Username(current.Username))
	return current, nil
}

// Hook adapta el Provisioner a LoginHook. El token sale de BearerFrom(ctx) y el
// username de user_metadata.username del payload, solo como fallback de alta.
func (p *Provisioner) Hook() LoginHook {
	return func(ctx context.Context, id Identity, raw json.RawMessage) error {
		_, err := p.Ensure(ctx, ProvisionRequest{
			Identity:         id,
			Token:            BearerFrom(ctx),
			FallbackUsername: metadataUsername(raw),
		})
		return err
	}
}

// metadataUsername lee user_metadata.username (o user.user_metadata.username).
func metadataUsername(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var body struct {
		UserMetadata struct {
			Username string `json:"username"`
		} `json:"user_metadata"`
		User struct {
			UserMetadata struct {
				Username string `json:"username"`
			} `json:"user_metadata"`
		} `json:"user"`
	}
	if json.Unmarshal(raw, &body) != nil {
		return ""
	}
	return firstNonEmpty(body.UserMetadata.Username, body.User.UserMetadata.Username)
}

func emailLocalPart(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
