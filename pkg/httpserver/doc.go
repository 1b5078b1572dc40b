// Package httpserver runs an http.Server until its context is cancelled and
// then shuts it down gracefully, running stop hooks such as closing the
// session manager once in-flight requests have drained.
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//
//	srv := httpserver.NewFromConfig(cfg,
//		httpserver.WithLogger(log),
//		httpserver.WithStopHook(func(context.Context) error { return manager.Close() }),
//	)
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("server stopped", logger.Error(err))
//	}
//
// LivenessHandler and ReadinessHandler serve the /health endpoints.
package httpserver
