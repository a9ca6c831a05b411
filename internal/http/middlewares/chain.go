// Package middlewares contiene los decoradores HTTP del servicio: request id,
// logging, recover, CORS, rate limit, métricas y autenticación.
package middlewares

import "net/http"

// Middleware decora un http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain envuelve h de modo que el primer middleware sea el más externo:
// Chain(h, A, B) atiende A -> B -> h. Los nil se ignoran, así un middleware
// opcional (métricas sin registry, rate limit apagado) no obliga a ramificar.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := range mws {
		if mw := mws[len(mws)-1-i]; mw != nil {
			h = mw(h)
		}
	}
	return h
}

// ChainFunc es Chain para un http.HandlerFunc.
func ChainFunc(hf http.HandlerFunc, mws ...Middleware) http.Handler {
	return Chain(hf, mws...)
}
