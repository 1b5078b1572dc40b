package session

import (
	"log/slog"
	"net/http"
	"time"
)

// Option configures a Manager built by New.
type Option func(*Manager)

func WithStore(s Store) Option {
	return func(m *Manager) { m.store = s }
}

func WithLocator(l Locator) Option {
	return func(m *Manager) { m.locator = l }
}

func WithFingerprinter(f Fingerprinter) Option {
	return func(m *Manager) { m.fingerprinter = f }
}

func WithConfig(cfg Config) Option {
	return func(m *Manager) { m.cfg = cfg }
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.clock.now = now
		}
	}
}

// WithIDGenerator replaces the UUID v4 generator.
func WithIDGenerator(gen func() (string, error)) Option {
	return func(m *Manager) {
		if gen != nil {
			m.newID = gen
		}
	}
}

// WithClientIP replaces clientip.GetIP, e.g. with a resolver trusting a
// different set of proxy headers.
func WithClientIP(fn func(*http.Request) string) Option {
	return func(m *Manager) {
		if fn != nil {
			m.clientIP = fn
		}
	}
}
