// Package handler turns typed functions into http.HandlerFunc values.
//
// A handler receives a Context and a request value filled by binders, and
// returns a Response that renders itself:
//
//	type getSessionRequest struct {
//		ID string `path:"id"`
//	}
//
//	func getSession(ctx handler.Context, req getSessionRequest) handler.Response {
//		rec, err := manager.GetSession(ctx, req.ID)
//		if err != nil {
//			return handler.JSONError(err)
//		}
//		return handler.JSON(rec)
//	}
//
//	r.Get("/sessions/{id}", handler.Wrap(getSession,
//		handler.WithBinders[handler.Context, getSessionRequest](binder.Path(chi.URLParam)),
//	))
//
// Errors returned by binders or by Response.Render go to the ErrorHandler.
// NewErrorHandler classifies HTTPError and ValidationError values, logs them
// with the request id and answers with a JSON body.
package handler
