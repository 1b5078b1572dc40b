package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/sessiontrack/pkg/binder"
	"github.com/dmitrymomot/sessiontrack/pkg/logger"
	"github.com/dmitrymomot/sessiontrack/pkg/requestid"
)

// ErrorInfo is the classification of a handler error.
type ErrorInfo struct {
	StatusCode int
	Message    string
	LogLevel   slog.Level
}

// ClassifyError maps HTTPError, ValidationError and binder failures to their
// status codes. Anything else is a 500 whose message is not exposed.
func ClassifyError(err error) ErrorInfo {
	info := ErrorInfo{
		StatusCode: http.StatusInternalServerError,
		Message:    http.StatusText(http.StatusInternalServerError),
	}

	var httpErr HTTPError
	switch {
	case errors.As(err, &httpErr):
		info.StatusCode = httpErr.Code
		info.Message = httpErr.Key
	case errors.Is(err, binder.ErrUnsupportedMediaType), errors.Is(err, binder.ErrMissingContentType):
		info.StatusCode = http.StatusUnsupportedMediaType
		info.Message = ErrUnsupportedMedia.Key
	case errors.Is(err, binder.ErrBind):
		info.StatusCode = http.StatusBadRequest
		info.Message = ErrBadRequest.Key
	}
	var valErr ValidationError
	if errors.As(err, &valErr) {
		info.StatusCode = http.StatusUnprocessableEntity
		info.Message = valErr.Error()
	}

	info.LogLevel = slog.LevelError
	if info.StatusCode < http.StatusInternalServerError {
		info.LogLevel = slog.LevelWarn
	}
	return info
}

// ErrorRenderer builds the response for a classified error.
type ErrorRenderer func(err error, info ErrorInfo) Response

type errorHandlerConfig struct {
	render ErrorRenderer
}

type ErrorHandlerOption func(*errorHandlerConfig)

// WithErrorRenderer replaces the JSONError envelope.
func WithErrorRenderer(r ErrorRenderer) ErrorHandlerOption {
	return func(c *errorHandlerConfig) {
		if r != nil {
			c.render = r
		}
	}
}

// NewErrorHandler logs every error with the request id and renders it.
func NewErrorHandler(log *slog.Logger, opts ...ErrorHandlerOption) ErrorHandler[Context] {
	if log == nil {
		log = slog.Default()
	}
	cfg := errorHandlerConfig{
		render: func(err error, _ ErrorInfo) Response { return JSONError(err) },
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(ctx Context, err error) {
		r := ctx.Request()
		info := ClassifyError(err)

		log.LogAttrs(r.Context(), info.LogLevel, "request error",
			logger.RequestID(requestid.FromContext(r.Context())),
			logger.Error(err),
			slog.Int("status_code", info.StatusCode),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logger.Component("handler"),
		)

		if renderErr := cfg.render(err, info).Render(ctx.ResponseWriter(), r); renderErr != nil {
			log.ErrorContext(r.Context(), "failed to render error", logger.Error(renderErr))
		}
	}
}
