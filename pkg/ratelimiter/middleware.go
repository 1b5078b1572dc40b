package ratelimiter

import (
	"encoding/json"
	"hash/fnv"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrymomot/sessiontrack/pkg/clientip"
	"github.com/dmitrymomot/sessiontrack/pkg/logger"
)

const maxKeyLength = 64

// KeyFunc picks the bucket for a request. An empty key skips limiting.
type KeyFunc func(r *http.Request) string

// ByIP keys on the resolved client address.
func ByIP() KeyFunc {
	return func(r *http.Request) string {
		if ip := clientip.FromContext(r.Context()); ip != "" {
			return "ip:" + ip
		}
		return "ip:" + clientip.GetIP(r)
	}
}

// Composite joins the non-empty keys of fns. Keys longer than 64 bytes are
// hashed with FNV-1a.
func Composite(fns ...KeyFunc) KeyFunc {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(fns))
		for _, fn := range fns {
			if key := fn(r); key != "" {
				parts = append(parts, key)
			}
		}
		key := strings.Join(parts, ":")
		if len(key) <= maxKeyLength {
			return key
		}
		h := fnv.New64a()
		_, _ = h.Write([]byte(key))
		return strconv.FormatUint(h.Sum64(), 36)
	}
}

type tooMany struct {
	Error string `json:"error"`
}

var tooManyBody, _ = json.Marshal(tooMany{Error: http.StatusText(http.StatusTooManyRequests)})

// Middleware answers 429 once the bucket for a request is empty. A store
// failure lets the request through.
func Middleware(b *Bucket, key KeyFunc, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = logger.Discard()
	}
	log = log.With(logger.Component("ratelimiter"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}

			res, err := b.Allow(r.Context(), k)
			if err != nil {
				log.ErrorContext(r.Context(), "rate limit check failed", logger.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(max(0, res.Remaining)))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed() {
				if secs := int(res.RetryAfter().Seconds()); secs > 0 {
					h.Set("Retry-After", strconv.Itoa(secs))
				}
				log.WarnContext(r.Context(), "rate limited", slog.String("key", k))
				h.Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write(append(tooManyBody, '\n'))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
