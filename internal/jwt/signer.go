package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Fallas de verificación. El middleware las trata igual (401) pero las loguea distinto.
var (
	ErrMalformedToken   = errors.New("malformed token")
	ErrExpiredToken     = errors.New("token expired")
	ErrInvalidSignature = errors.New("invalid token signature")
)

// DefaultTTL es la vida de un token local.
const DefaultTTL = 24 * time.Hour

// Claims es el payload de un token local.
type Claims struct {
	jwtv5.RegisteredClaims
	Role  string `json:"role,omitempty"`
	Email string `json:"email,omitempty"`
}

// LocalToken es un token firmado junto con los datos que embebe.
type LocalToken struct {
	Raw       string
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Extra son claims opcionales que acompañan al subject.
type Extra struct {
	Role  string
	Email string
}

// Signer emite y verifica tokens HS256 con una clave simétrica de proceso.
// Es inmutable después de construido y seguro para uso concurrente.
type Signer struct {
	key    []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner crea un Signer. ttl <= 0 usa DefaultTTL.
func NewSigner(key []byte, issuer string, ttl time.Duration) (*Signer, error) {
	if len(key) == 0 {
		return nil, errors.New("jwt: empty signing key")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Signer{key: k, issuer: issuer, ttl: ttl, now: time.Now}, nil
}

// WithClock retorna una copia del Signer que usa now como reloj.
func (s *Signer) WithClock(now func() time.Time) *Signer {
	cp := *s
	cp.now = now
	return &cp
}

// TTL devuelve la vida configurada de los tokens.
func (s *Signer) TTL() time.Duration { return s.ttl }

// Issue firma un token para subject con expiración now+ttl.
func (s *Signer) Issue(subject string, extra Extra) (LocalToken, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return LocalToken{}, errors.New("jwt: empty subject")
	}

	now := s.now().UTC().Truncate(time.Second)
	exp := now.Add(s.ttl)
	claims := &Claims{
		RegisteredClaims: jwtv5.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subject,
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
		Role:  extra.Role,
		Email: extra.Email,
	}

	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	tk.Header["typ"] = "JWT"
	signed, err := tk.SignedString(s.key)
	if err != nil {
		return LocalToken{}, fmt.Errorf("jwt: sign: %w", err)
	}

	return LocalToken{Raw: signed, Subject: subject, IssuedAt: now, ExpiresAt: exp}, nil
}

// Verify valida firma, issuer y expiración. Siempre retorna una de
// ErrMalformedToken, ErrExpiredToken o ErrInvalidSignature (envueltas) ante falla;
// nunca propaga un panic.
func (s *Signer) Verify(raw string) (claims *Claims, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			claims = nil
			err = fmt.Errorf("%w: %v", ErrMalformedToken, rec)
		}
	}()

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrMalformedToken
	}

	opts := []jwtv5.ParserOption{
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}),
		jwtv5.WithTimeFunc(s.now),
		jwtv5.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwtv5.WithIssuer(s.issuer))
	}

	tok, err := jwtv5.ParseWithClaims(raw, &Claims{}, func(*jwtv5.Token) (any, error) {
		return s.key, nil
	}, opts...)
	if err != nil {
		return nil, classify(err)
	}

	c, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrMalformedToken
	}
	if strings.TrimSpace(c.Subject) == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrMalformedToken)
	}
	return c, nil
}

// classify traduce errores de golang-jwt a las tres fallas del paquete.
// La firma se verifica antes que los claims, así que un token adulterado y
// vencido reporta firma inválida.
func classify(err error) error {
	switch {
	case errors.Is(err, jwtv5.ErrTokenSignatureInvalid),
		errors.Is(err, jwtv5.ErrTokenUnverifiable),
		errors.Is(err, jwtv5.ErrTokenInvalidIssuer):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	case errors.Is(err, jwtv5.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpiredToken, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
}

// Kind devuelve una etiqueta estable para logs/métricas.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrExpiredToken):
		return "expired"
	case errors.Is(err, ErrInvalidSignature):
		return "invalid_signature"
	default:
		return "malformed"
	}
}
