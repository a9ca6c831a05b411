package middlewares

import (
	"net/http"

	"github.com/dropDatabas3/para/internal/http/helpers"
)

// WithClientIP resuelve la IP de cliente una vez por request; logging y rate
// limit la leen con helpers.ClientIP.
func WithClientIP(res *helpers.IPResolver) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := helpers.WithClientIP(r.Context(), res.ClientIP(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
