// Package logger expone un logger Zap global con scoping por request.
//
// Inicialización (una vez, en el comando serve):
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, Service: "para"})
//	defer logger.L().Sync()
//
// En handlers y servicios se usa siempre el logger del contexto, que el middleware
// WithLogging ya decoró con request_id, method y path:
//
//	logger.From(ctx).Info("profile created", logger.UserID(id))
//
// Los tokens nunca se loguean completos (TokenPreview) y los emails van
// enmascarados (Email).
package logger
