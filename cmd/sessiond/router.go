package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/sessiontrack/pkg/clientip"
	"github.com/dmitrymomot/sessiontrack/pkg/environment"
	"github.com/dmitrymomot/sessiontrack/pkg/httpserver"
	"github.com/dmitrymomot/sessiontrack/pkg/requestid"
	"github.com/dmitrymomot/sessiontrack/pkg/session"
	"github.com/dmitrymomot/sessiontrack/svc/item"
	"github.com/dmitrymomot/sessiontrack/svc/tracking"
)

type routerDeps struct {
	log          *slog.Logger
	env          environment.Environment
	manager      *session.Manager
	itemStore    item.Store
	apiKey       func(http.Handler) http.Handler
	createLimit  func(http.Handler) http.Handler
	tracker      session.Transport
	checks       map[string]httpserver.Check
	readyTimeout time.Duration
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer,
		requestid.Middleware,
		clientip.NewResolver(nil).Middleware,
		environment.Middleware(d.env),
	)

	r.Get("/health", httpserver.LivenessHandler())
	r.Get("/health/ready", httpserver.ReadinessHandler(d.log, d.readyTimeout, d.checks))

	protected := r.With(d.apiKey)

	var opts []tracking.Option
	if d.createLimit != nil {
		opts = append(opts, tracking.WithCreateMiddleware(d.createLimit))
	}
	protected.Mount("/sessions", tracking.Router(d.manager, d.log, opts...))

	items := protected
	if d.tracker != nil {
		items = items.With(d.manager.Middleware(d.tracker))
	}
	items.Mount("/items", item.Router(item.NewService(d.itemStore, d.log), d.log))

	return r
}
