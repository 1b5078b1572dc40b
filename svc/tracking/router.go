// Package tracking exposes the session manager over HTTP.
package tracking

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/sessiontrack/handler"
	"github.com/dmitrymomot/sessiontrack/pkg/binder"
	"github.com/dmitrymomot/sessiontrack/pkg/session"
)

var (
	errSessionNotFound = handler.NewHTTPError(http.StatusNotFound, "session.not_found")
	errUnavailable     = handler.NewHTTPError(http.StatusServiceUnavailable, "session.unavailable")
)

type idRequest struct {
	ID string `path:"id"`
}

type created struct {
	SessionID string `json:"session_id"`
}

type config struct {
	header string
	create []func(http.Handler) http.Handler
}

type Option func(*config)

// WithHeader names the response header that carries a new session id.
func WithHeader(name string) Option {
	return func(c *config) {
		if name != "" {
			c.header = name
		}
	}
}

// WithCreateMiddleware wraps only POST /, e.g. with a rate limiter.
func WithCreateMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(c *config) { c.create = append(c.create, mw...) }
}

// Router serves session routes relative to its mount point.
func Router(m *session.Manager, log *slog.Logger, opts ...Option) chi.Router {
	cfg := config{header: session.DefaultConfig().Header}
	for _, opt := range opts {
		opt(&cfg)
	}

	onError := handler.NewErrorHandler(log)
	path := binder.Path(chi.URLParam)

	r := chi.NewRouter()

	r.With(cfg.create...).Post("/", handler.Wrap(func(ctx handler.Context, _ struct{}) handler.Response {
		id, err := m.CreateSession(ctx, ctx.Request())
		if err != nil {
			return handler.Error(mapError(err))
		}
		return handler.JSON(created{SessionID: id},
			handler.WithJSONStatus(http.StatusCreated),
			handler.WithJSONHeader(cfg.header, id),
		)
	}, handler.WithErrorHandler[handler.Context, struct{}](onError)))

	r.Get("/", handler.Wrap(func(ctx handler.Context, _ struct{}) handler.Response {
		recs, err := m.ListSessions(ctx)
		if err != nil {
			return handler.Error(mapError(err))
		}
		if recs == nil {
			recs = []session.Record{}
		}
		return handler.JSON(recs)
	}, handler.WithErrorHandler[handler.Context, struct{}](onError)))

	r.Get("/{id}", handler.Wrap(func(ctx handler.Context, req idRequest) handler.Response {
		rec, err := m.GetSession(ctx, req.ID)
		if err != nil {
			return handler.Error(mapError(err))
		}
		if rec == nil {
			return handler.Error(errSessionNotFound)
		}
		return handler.JSON(rec)
	},
		handler.WithBinders[handler.Context, idRequest](path),
		handler.WithErrorHandler[handler.Context, idRequest](onError),
	))

	r.Post("/{id}/touch", handler.Wrap(func(ctx handler.Context, req idRequest) handler.Response {
		if _, err := m.TouchSessionStrict(ctx, req.ID); err != nil {
			return handler.Error(mapError(err))
		}
		return handler.Empty()
	},
		handler.WithBinders[handler.Context, idRequest](path),
		handler.WithErrorHandler[handler.Context, idRequest](onError),
	))

	r.Delete("/{id}", handler.Wrap(func(ctx handler.Context, req idRequest) handler.Response {
		if err := m.CloseSession(ctx, req.ID); err != nil {
			return handler.Error(mapError(err))
		}
		return handler.Empty()
	},
		handler.WithBinders[handler.Context, idRequest](path),
		handler.WithErrorHandler[handler.Context, idRequest](onError),
	))

	return r
}

// mapError keeps the original error for logging and adds the status to
// answer with.
func mapError(err error) error {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return errors.Join(errSessionNotFound, err)
	case errors.Is(err, session.ErrManagerClosed):
		return errors.Join(errUnavailable, err)
	default:
		return err
	}
}
