package binder

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
)

// DefaultMaxJSONSize caps request bodies at 1 MiB.
const DefaultMaxJSONSize = 1 << 20

// JSON decodes an application/json body strictly: unknown fields, trailing
// data and oversized bodies are rejected. Strings are trimmed of surrounding
// whitespace.
func JSON() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		ct := r.Header.Get("Content-Type")
		if ct == "" {
			return bindError(ErrMissingContentType, "expected application/json")
		}
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			return bindError(ErrUnsupportedMediaType, "expected application/json, got "+ct)
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, DefaultMaxJSONSize+1))
		if err != nil {
			return bindError(ErrFailedToParseJSON, err.Error())
		}
		if len(body) > DefaultMaxJSONSize {
			return bindError(ErrFailedToParseJSON, "request body too large")
		}

		dec := json.NewDecoder(strings.NewReader(string(body)))
		dec.DisallowUnknownFields()
		if err := dec.Decode(v); err != nil {
			if errors.Is(err, io.EOF) {
				return bindError(ErrFailedToParseJSON, "empty body")
			}
			return bindError(ErrFailedToParseJSON, err.Error())
		}
		if dec.More() {
			return bindError(ErrFailedToParseJSON, "unexpected data after JSON value")
		}

		trimStrings(v)
		return nil
	}
}
