// Package apikey guards routes with a static key presented in a request
// header.
package apikey

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/sessiontrack/pkg/clientip"
	"github.com/dmitrymomot/sessiontrack/pkg/logger"
)

const DefaultHeader = "X-API-Key"

var ErrEmptyKey = errors.New("apikey.empty_key")

type Config struct {
	Key    string `env:"API_KEY"`
	Header string `env:"API_KEY_HEADER" envDefault:"X-API-Key"`
}

type forbidden struct {
	Error string `json:"error"`
}

var forbiddenBody, _ = json.Marshal(forbidden{Error: "Forbidden: Invalid API Key"})

// Middleware rejects requests whose header does not match cfg.Key with 403.
// It fails with ErrEmptyKey when no key is configured so an unset variable
// never opens the routes.
func Middleware(cfg Config, log *slog.Logger) (func(http.Handler) http.Handler, error) {
	if cfg.Key == "" {
		return nil, ErrEmptyKey
	}
	if cfg.Header == "" {
		cfg.Header = DefaultHeader
	}
	if log == nil {
		log = logger.Discard()
	}
	want := []byte(cfg.Key)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get(cfg.Header))
			if subtle.ConstantTimeCompare(got, want) != 1 {
				log.WarnContext(r.Context(), "invalid api key",
					logger.IP(clientip.GetIP(r)),
					slog.String("path", r.URL.Path),
				)
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write(append(forbiddenBody, '\n'))
				return
			}
			next.ServeHTTP(w, r)
		})
	}, nil
}
