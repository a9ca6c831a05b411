package middlewares

import "context"

type ctxKey int

const (
	ctxRequestIDKey ctxKey = iota
	ctxAccessKey
)

func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

// GetRequestID obtiene el request ID del contexto; "" si WithRequestID no corrió.
func GetRequestID(ctx context.Context) string {
	s, _ := ctx.Value(ctxRequestIDKey).(string)
	return s
}

// accessNote lo crea WithLogging y lo completa Authenticate, que corre más
// adentro de la cadena. Así la línea de acceso sabe quién fue y cómo se decidió.
type accessNote struct {
	outcome string
	subject string
}

func withAccessNote(ctx context.Context) (context.Context, *accessNote) {
	n := &accessNote{}
	return context.WithValue(ctx, ctxAccessKey, n), n
}

func noteAuth(ctx context.Context, outcome, subject string) {
	if n, ok := ctx.Value(ctxAccessKey).(*accessNote); ok {
		n.outcome = outcome
		n.subject = subject
	}
}
