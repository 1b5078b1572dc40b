package session

import "time"

// Config tunes a Manager. Load it from the environment with config.Load.
type Config struct {
	// TTL expires sessions idle for longer than this. Zero disables expiry.
	TTL           time.Duration `env:"SESSION_TTL" envDefault:"0"`
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"5m"`

	// RetainClosed keeps closed sessions with status Closed instead of
	// deleting them. The store must implement StatusUpdater.
	RetainClosed bool `env:"SESSION_RETAIN_CLOSED" envDefault:"false"`

	// LookupTimeout bounds geolocation and fingerprinting together.
	LookupTimeout time.Duration `env:"SESSION_LOOKUP_TIMEOUT" envDefault:"5s"`

	Header     string `env:"SESSION_HEADER" envDefault:"X-Session-ID"`
	CookieName string `env:"SESSION_COOKIE_NAME" envDefault:"sid"`
}

// DefaultConfig matches the envDefault tags.
func DefaultConfig() Config {
	return Config{
		SweepInterval: 5 * time.Minute,
		LookupTimeout: 5 * time.Second,
		Header:        "X-Session-ID",
		CookieName:    "sid",
	}
}
