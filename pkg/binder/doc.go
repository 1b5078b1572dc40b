// Package binder fills request structs from JSON bodies and router path
// parameters for handler.Wrap.
//
// Every failure wraps ErrBind so the error handler can answer 400; a body
// with the wrong content type also wraps ErrUnsupportedMediaType.
package binder
