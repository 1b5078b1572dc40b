// Package logger builds *slog.Logger instances for the service.
//
// Output is JSON in production and colourised text (github.com/lmittmann/tint)
// in development. Request-scoped values such as the request id are attached at
// log time by context extractors:
//
//	log := logger.New(
//		logger.ForEnvironment(environment.Production, "sessiond"),
//		logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//	log.InfoContext(ctx, "session created", logger.SessionID(id))
package logger
