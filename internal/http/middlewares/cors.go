package middlewares

import (
	"net/http"
	"strings"
)

const (
	corsMethods = "GET, POST, PATCH, DELETE, OPTIONS"
	corsHeaders = "Content-Type, Authorization, X-Request-ID"
	// Authorization: el login local devuelve el token también en ese header.
	corsExpose = "Authorization, X-Request-ID, X-RateLimit-Remaining, X-RateLimit-Reset, Retry-After, WWW-Authenticate"
	corsMaxAge = "600"
)

type originSet struct {
	any   bool
	exact map[string]bool
}

func newOriginSet(origins []string) originSet {
	s := originSet{exact: make(map[string]bool, len(origins))}
	for _, o := range origins {
		o = normalizeOrigin(o)
		switch o {
		case "":
		case "*":
			s.any = true
		default:
			s.exact[o] = true
		}
	}
	return s
}

func normalizeOrigin(o string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/"))
}

func (s originSet) allows(origin string) bool {
	if origin == "" {
		return false
	}
	return s.any || s.exact[normalizeOrigin(origin)]
}

// WithCORS responde los preflight OPTIONS con 204 sin pasar por autenticación,
// en cualquier path. Los headers Access-Control-* solo salen para orígenes de
// la lista ("*" acepta cualquiera; el origen se refleja porque hay credenciales).
func WithCORS(allowed []string) Middleware {
	origins := newOriginSet(allowed)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Add("Vary", "Origin")

			origin := r.Header.Get("Origin")
			if origins.allows(origin) {
				h.Set("Access-Control-Allow-Origin", strings.TrimRight(strings.TrimSpace(origin), "/"))
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Access-Control-Expose-Headers", corsExpose)
			}

			if r.Method != http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			h.Add("Vary", "Access-Control-Request-Method")
			h.Add("Vary", "Access-Control-Request-Headers")
			if origins.allows(origin) {
				h.Set("Access-Control-Allow-Methods", corsMethods)
				h.Set("Access-Control-Allow-Headers", corsHeaders)
				h.Set("Access-Control-Max-Age", corsMaxAge)
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}
