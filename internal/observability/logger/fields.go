package logger

import (
	"strings"
	"time"

	"go.uber.org/zap"
)

// HTTP

func RequestID(v string) zap.Field       { return zap.String("request_id", v) }
func Method(v string) zap.Field          { return zap.String("method", v) }
func Path(v string) zap.Field            { return zap.String("path", v) }
func Status(v int) zap.Field             { return zap.Int("status", v) }
func Bytes(v int) zap.Field              { return zap.Int("bytes", v) }
func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }
func ClientIP(v string) zap.Field        { return zap.String("client_ip", v) }

// Auth

func UserID(v string) zap.Field   { return zap.String("user_id", v) }
func Username(v string) zap.Field { return zap.String("username", v) }
func AuthMode(v string) zap.Field { return zap.String("auth_mode", v) }
func Outcome(v string) zap.Field  { return zap.String("outcome", v) }
func Attempt(v int) zap.Field     { return zap.Int("attempt", v) }

// Email loguea el email enmascarado: "j…@g….com".
func Email(v string) zap.Field { return zap.String("email", MaskEmail(v)) }

func MaskEmail(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	i := strings.IndexByte(s, '@')
	if i <= 0 {
		if s == "" {
			return ""
		}
		if len(s) <= 3 {
			return "***"
		}
		return s[:1] + "…" + s[len(s)-1:]
	}
	user, dom := s[:i], s[i+1:]
	if len(user) > 1 {
		user = user[:1] + "…"
	}
	parts := strings.Split(dom, ".")
	if len(parts[0]) > 1 {
		parts[0] = parts[0][:1] + "…"
	}
	return user + "@" + strings.Join(parts, ".")
}

// TokenPreview loguea solo los primeros caracteres de un token.
func TokenPreview(raw string) zap.Field {
	const keep = 12
	if len(raw) > keep {
		raw = raw[:keep] + "..."
	}
	return zap.String("token", raw)
}

// Sistema

func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field        { return zap.String("op", v) }
func Err(err error) zap.Field      { return zap.Error(err) }
func Any(key string, v any) zap.Field {
	return zap.Any(key, v)
}

func Layer(v string) zap.Field     { return zap.String("layer", v) }
func DurationMs(v int64) zap.Field { return zap.Int64("duration_ms", v) }
func UserAgent(v string) zap.Field { return zap.String("user_agent", v) }
func Decision(v string) zap.Field  { return zap.String("decision", v) }
