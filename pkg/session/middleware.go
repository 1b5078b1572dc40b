package session

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/sessiontrack/pkg/logger"
)

// Middleware attaches a session to every request. A known id presented
// through t is touched; otherwise a new session is created and issued.
// Store failures are logged and the request continues untracked.
func (m *Manager) Middleware(t Transport) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if id, ok := t.Extract(r); ok {
				rec, err := m.TouchSessionStrict(ctx, id)
				if err == nil && rec.IsActive() {
					next.ServeHTTP(w, r.WithContext(WithRecord(ctx, rec)))
					return
				}
				if err != nil && !errors.Is(err, ErrSessionNotFound) {
					m.log.ErrorContext(ctx, "session touch failed", logger.SessionID(id), logger.Error(err))
					next.ServeHTTP(w, r)
					return
				}
			}

			id, err := m.CreateSession(ctx, r)
			if err != nil {
				m.log.ErrorContext(ctx, "session tracking failed", logger.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			t.Issue(w, id)

			rec, err := m.GetSession(ctx, id)
			if err != nil || rec == nil {
				rec = &Record{ID: id, Status: StatusActive}
			}
			next.ServeHTTP(w, r.WithContext(WithRecord(ctx, rec)))
		})
	}
}
