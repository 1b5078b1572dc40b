package handler

import (
	"encoding/json"
	"errors"
	"maps"
	"net/http"
)

// JSONResponse is the envelope written by JSON and JSONError.
type JSONResponse struct {
	Data  any            `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *ErrorDetail   `json:"error,omitempty"`
}

type ErrorDetail struct {
	Code    string              `json:"code,omitempty"`
	Message string              `json:"message,omitempty"`
	Details map[string][]string `json:"details,omitempty"`
}

type jsonResponse struct {
	status  int
	headers http.Header
	body    any
}

func (j *jsonResponse) Render(w http.ResponseWriter, _ *http.Request) error {
	for k, v := range j.headers {
		w.Header()[k] = v
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(j.status)
	return json.NewEncoder(w).Encode(j.body)
}

type JSONOption func(*jsonResponse)

func WithJSONStatus(status int) JSONOption {
	return func(r *jsonResponse) { r.status = status }
}

// WithJSONHeader sets a response header alongside the body.
func WithJSONHeader(key, value string) JSONOption {
	return func(r *jsonResponse) {
		if r.headers == nil {
			r.headers = make(http.Header)
		}
		r.headers.Set(key, value)
	}
}

func WithJSONMeta(meta map[string]any) JSONOption {
	return func(r *jsonResponse) {
		if env, ok := r.body.(JSONResponse); ok {
			env.Meta = meta
			r.body = env
		}
	}
}

// JSON wraps v in the {"data": ...} envelope. An error value is rendered as
// JSONError would.
func JSON(v any, opts ...JSONOption) Response {
	r := &jsonResponse{status: http.StatusOK}
	switch val := v.(type) {
	case JSONResponse:
		r.body = val
	case error:
		env := JSONResponse{}
		env.Error, r.status = errorToDetail(val)
		r.body = env
	default:
		r.body = JSONResponse{Data: v}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func JSONError(err error, opts ...JSONOption) Response {
	env := JSONResponse{}
	r := &jsonResponse{}
	env.Error, r.status = errorToDetail(err)
	r.body = env
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RawJSON writes v as is, without the envelope.
func RawJSON(status int, v any, opts ...JSONOption) Response {
	r := &jsonResponse{status: status, body: v}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func errorToDetail(err error) (*ErrorDetail, int) {
	info := ClassifyError(err)

	var valErr ValidationError
	if errors.As(err, &valErr) {
		detail := &ErrorDetail{Code: "validation_error", Message: info.Message}
		if len(valErr) > 0 {
			detail.Details = make(map[string][]string, len(valErr))
			maps.Copy(detail.Details, valErr)
		}
		return detail, info.StatusCode
	}
	if info.StatusCode == http.StatusInternalServerError {
		return &ErrorDetail{Code: "internal_error", Message: info.Message}, info.StatusCode
	}
	return &ErrorDetail{Code: info.Message, Message: http.StatusText(info.StatusCode)}, info.StatusCode
}
