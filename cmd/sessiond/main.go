// Command sessiond serves the session tracking API and the items API.
package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dmitrymomot/sessiontrack/pkg/apikey"
	"github.com/dmitrymomot/sessiontrack/pkg/config"
	"github.com/dmitrymomot/sessiontrack/pkg/cookie"
	"github.com/dmitrymomot/sessiontrack/pkg/environment"
	"github.com/dmitrymomot/sessiontrack/pkg/fingerprint"
	"github.com/dmitrymomot/sessiontrack/pkg/geolocation"
	"github.com/dmitrymomot/sessiontrack/pkg/httpserver"
	"github.com/dmitrymomot/sessiontrack/pkg/logger"
	"github.com/dmitrymomot/sessiontrack/pkg/ratelimiter"
	"github.com/dmitrymomot/sessiontrack/pkg/requestid"
	"github.com/dmitrymomot/sessiontrack/pkg/session"
)

type appConfig struct {
	Env          string        `env:"APP_ENV" envDefault:"development"`
	LogLevel     string        `env:"LOG_LEVEL"`
	SessionStore string        `env:"SESSION_STORE" envDefault:"memory"`
	ItemStore    string        `env:"ITEM_STORE" envDefault:"memory"`
	TrackItems   bool          `env:"SESSION_TRACK_ITEMS" envDefault:"false"`
	RateLimit    bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	ReadyTimeout time.Duration `env:"HEALTH_READY_TIMEOUT" envDefault:"3s"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("sessiond stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ENV_FILES lists extra .env files, comma separated, read before any
	// configuration is parsed.
	if files := os.Getenv("ENV_FILES"); files != "" {
		if err := config.LoadEnvFiles(strings.Split(files, ",")...); err != nil {
			return err
		}
	}

	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}
	env := environment.Parse(cfg.Env)

	log := logger.New(
		logger.ForEnvironment(env, "sessiond"),
		logger.WithLevelName(cfg.LogLevel),
		logger.WithContextExtractors(
			requestid.LoggerExtractor(),
			session.LoggerExtractor(),
		),
	)
	slog.SetDefault(log)

	b := &backends{log: log}
	defer b.close()

	sessionStore, err := openSessionStore(ctx, cfg.SessionStore, b)
	if err != nil {
		return err
	}
	itemStore, err := openItemStore(ctx, cfg.ItemStore, b)
	if err != nil {
		return err
	}

	manager, err := newManager(sessionStore, log)
	if err != nil {
		return err
	}
	defer func() { _ = manager.Close() }()

	var keyCfg apikey.Config
	if err := config.Load(&keyCfg); err != nil {
		return err
	}
	auth, err := apikey.Middleware(keyCfg, log)
	if err != nil {
		return err
	}

	deps := routerDeps{
		log:          log,
		env:          env,
		manager:      manager,
		itemStore:    itemStore,
		apiKey:       auth,
		checks:       b.checks(sessionStore),
		readyTimeout: cfg.ReadyTimeout,
	}
	if cfg.RateLimit {
		if deps.createLimit, err = newRateLimit(b, log); err != nil {
			return err
		}
	}
	if cfg.TrackItems {
		if deps.tracker, err = newTransport(); err != nil {
			return err
		}
	}

	var srvCfg httpserver.Config
	if err := config.Load(&srvCfg); err != nil {
		return err
	}
	srv := httpserver.NewFromConfig(srvCfg,
		httpserver.WithLogger(log),
		httpserver.WithStartHook(func(ctx context.Context, addr net.Addr) {
			log.InfoContext(ctx, "sessiond listening",
				slog.String("addr", addr.String()),
				slog.String("session_store", cfg.SessionStore),
				slog.String("item_store", cfg.ItemStore),
			)
		}),
		httpserver.WithStopHook(func(context.Context) error { return manager.Close() }),
		httpserver.WithStopHook(func(context.Context) error { b.close(); return nil }),
	)

	return srv.Run(ctx, newRouter(deps))
}

func newManager(store session.Store, log *slog.Logger) (*session.Manager, error) {
	var (
		sessCfg session.Config
		geoCfg  geolocation.Config
		fpCfg   fingerprint.Config
	)
	for _, load := range []func() error{
		func() error { return config.Load(&sessCfg) },
		func() error { return config.Load(&geoCfg) },
		func() error { return config.Load(&fpCfg) },
	} {
		if err := load(); err != nil {
			return nil, err
		}
	}

	opts := []session.Option{
		session.WithStore(store),
		session.WithConfig(sessCfg),
		session.WithFingerprinter(fingerprint.New(fpCfg)),
		session.WithLogger(log),
	}
	if geoCfg.APIKey != "" {
		opts = append(opts, session.WithLocator(
			geolocation.Cached(geolocation.NewClient(geoCfg), geoCfg.CacheSize, geoCfg.CacheTTL),
		))
	} else {
		log.Warn("GEO_API_KEY not set, locations will be recorded as Unknown")
	}
	return session.New(opts...)
}

// newRateLimit shares buckets through Redis when a client is connected.
func newRateLimit(b *backends, log *slog.Logger) (func(http.Handler) http.Handler, error) {
	var cfg ratelimiter.Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}

	var store ratelimiter.Store
	if b.redis != nil {
		store = ratelimiter.NewRedisStore(b.redis, "sessiond:ratelimit:")
	} else {
		mem := ratelimiter.NewMemoryStore()
		b.onClose(func() { mem.Close() })
		store = mem
	}
	bucket, err := ratelimiter.NewBucket(store, cfg)
	if err != nil {
		return nil, err
	}
	return ratelimiter.Middleware(bucket, ratelimiter.ByIP(), log), nil
}

// newTransport reads the session id from the header, and also from a signed
// cookie when COOKIE_SECRETS is set.
func newTransport() (session.Transport, error) {
	var (
		sessCfg   session.Config
		cookieCfg cookie.Config
	)
	if err := config.Load(&sessCfg); err != nil {
		return nil, err
	}
	if err := config.Load(&cookieCfg); err != nil {
		return nil, err
	}

	header := session.NewHeaderTransport(sessCfg.Header)
	if cookieCfg.Secrets == "" {
		return header, nil
	}
	signer, err := cookie.New(cookieCfg)
	if err != nil {
		return nil, err
	}
	return session.MultiTransport{
		header,
		session.NewCookieTransport(signer, sessCfg.CookieName, sessCfg.TTL),
	}, nil
}
