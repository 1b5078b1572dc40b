package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/dmitrymomot/sessiontrack/pkg/logger"
)

// Check is a named readiness check.
type Check func(ctx context.Context) error

type healthStatus struct {
	Status string   `json:"status"`
	Failed []string `json:"failed,omitempty"`
}

// LivenessHandler always answers 200 {"status":"OK"}.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, http.StatusOK, healthStatus{Status: "OK"})
	}
}

// ReadinessHandler runs every check with timeout and answers 200 when all
// pass, or 503 listing the failed check names.
func ReadinessHandler(log *slog.Logger, timeout time.Duration, checks map[string]Check) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	slices.Sort(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		var failed []string
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				log.ErrorContext(ctx, "readiness check failed", slog.String("check", name), logger.Error(err))
				failed = append(failed, name)
			}
		}
		if len(failed) > 0 {
			writeHealth(w, http.StatusServiceUnavailable, healthStatus{Status: "NOT_READY", Failed: failed})
			return
		}
		writeHealth(w, http.StatusOK, healthStatus{Status: "OK"})
	}
}

func writeHealth(w http.ResponseWriter, code int, body healthStatus) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
