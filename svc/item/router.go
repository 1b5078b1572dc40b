package item

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/sessiontrack/handler"
	"github.com/dmitrymomot/sessiontrack/pkg/binder"
)

type message struct {
	Message string `json:"message"`
	Item    *Item  `json:"item,omitempty"`
}

type errorBody struct {
	Error string `json:"error"`
}

type idRequest struct {
	ID int64 `path:"id"`
}

type writeRequest struct {
	ID          int64  `path:"id" json:"-"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (r writeRequest) input() Input {
	return Input{Name: r.Name, Description: r.Description}
}

// Router serves the item routes. Bodies are plain JSON objects rather than
// the handler envelope; errors are {"error": "..."}.
func Router(svc *Service, log *slog.Logger) chi.Router {
	onError := handler.NewErrorHandler(log, handler.WithErrorRenderer(
		func(_ error, info handler.ErrorInfo) handler.Response {
			return handler.RawJSON(info.StatusCode, errorBody{Error: info.Message})
		},
	))
	path := binder.Path(chi.URLParam)
	body := binder.JSON()

	r := chi.NewRouter()

	r.Get("/", handler.Wrap(func(ctx handler.Context, _ struct{}) handler.Response {
		items, err := svc.List(ctx)
		if err != nil {
			return handler.Error(err)
		}
		return handler.RawJSON(http.StatusOK, items)
	}, handler.WithErrorHandler[handler.Context, struct{}](onError)))

	r.Post("/", handler.Wrap(func(ctx handler.Context, req writeRequest) handler.Response {
		it, err := svc.Create(ctx, req.input())
		if err != nil {
			return handler.Error(err)
		}
		return handler.RawJSON(http.StatusCreated, message{Message: "Item created", Item: &it})
	},
		handler.WithBinders[handler.Context, writeRequest](body),
		handler.WithErrorHandler[handler.Context, writeRequest](onError),
	))

	r.Get("/{id}", handler.Wrap(func(ctx handler.Context, req idRequest) handler.Response {
		it, err := svc.Get(ctx, req.ID)
		if err != nil {
			return handler.Error(err)
		}
		return handler.RawJSON(http.StatusOK, it)
	},
		handler.WithBinders[handler.Context, idRequest](path),
		handler.WithErrorHandler[handler.Context, idRequest](onError),
	))

	r.Put("/{id}", handler.Wrap(func(ctx handler.Context, req writeRequest) handler.Response {
		it, err := svc.Update(ctx, req.ID, req.input())
		if err != nil {
			return handler.Error(err)
		}
		return handler.RawJSON(http.StatusOK, message{Message: "Item updated", Item: &it})
	},
		handler.WithBinders[handler.Context, writeRequest](path, body),
		handler.WithErrorHandler[handler.Context, writeRequest](onError),
	))

	r.Delete("/{id}", handler.Wrap(func(ctx handler.Context, req idRequest) handler.Response {
		if err := svc.Delete(ctx, req.ID); err != nil {
			return handler.Error(err)
		}
		return handler.RawJSON(http.StatusOK, message{Message: "Item deleted"})
	},
		handler.WithBinders[handler.Context, idRequest](path),
		handler.WithErrorHandler[handler.Context, idRequest](onError),
	))

	return r
}
