package middlewares

import (
	"net/http"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dropDatabas3/para/internal/http/helpers"
	"github.com/dropDatabas3/para/internal/observability/logger"
)

// statusRecorder guarda status y bytes de la respuesta.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.wroteHeader {
		return
	}
	s.status, s.wroteHeader = code, true
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if !s.wroteHeader {
		s.WriteHeader(http.StatusOK)
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

func (s *statusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }

// probes van a debug cuando responden bien; los scrapea el orquestador cada pocos segundos.
var probes = map[string]bool{"/healthz": true, "/readyz": true, "/metrics": true}

func accessLevel(status int, path string) (zapcore.Level, string) {
	switch {
	case status >= 500:
		return zapcore.ErrorLevel, "request failed"
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return zapcore.InfoLevel, "request denied"
	case status >= 400:
		return zapcore.WarnLevel, "request completed with client error"
	case probes[path]:
		return zapcore.DebugLevel, "probe"
	default:
		return zapcore.InfoLevel, "request completed"
	}
}

// WithLogging inyecta un logger scoped (request_id, method, path) en el contexto
// y escribe una línea de acceso al terminar, con el resultado de autenticación
// y el user_id cuando Authenticate los dejó anotados.
func WithLogging() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := GetRequestID(r.Context())
			if requestID == "" {
				requestID = w.Header().Get("X-Request-ID")
			}
			reqLog := logger.L().With(
				logger.RequestID(requestID),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
			)

			ctx, note := withAccessNote(logger.ToContext(r.Context(), reqLog))
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(ctx))

			lvl, msg := accessLevel(rec.status, r.URL.Path)
			ce := reqLog.Check(lvl, msg)
			if ce == nil {
				return
			}
			fields := []zap.Field{
				logger.Status(rec.status),
				logger.Bytes(rec.bytes),
				logger.DurationMs(time.Since(start).Milliseconds()),
				logger.ClientIP(helpers.ClientIP(r)),
			}
			if note.outcome != "" {
				fields = append(fields, logger.Outcome(note.outcome))
			}
			if note.subject != "" {
				fields = append(fields, logger.UserID(note.subject))
			}
			if rec.status >= 400 {
				fields = append(fields, logger.UserAgent(r.UserAgent()))
			}
			ce.Write(fields...)
		})
	}
}
