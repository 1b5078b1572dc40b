package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrymomot/sessiontrack/pkg/logger"
)

type config struct {
	addr            string
	readTimeout     time.Duration
	writeTimeout    time.Duration
	idleTimeout     time.Duration
	shutdownTimeout time.Duration
	logger          *slog.Logger
	startHooks      []func(context.Context, net.Addr)
	stopHooks       []func(context.Context) error
}

type Server struct {
	cfg config

	mu      sync.Mutex
	srv     *http.Server
	once    sync.Once
	stopErr error
}

func New(opts ...Option) *Server {
	cfg := config{
		addr:            ":8080",
		readTimeout:     15 * time.Second,
		writeTimeout:    15 * time.Second,
		idleTimeout:     60 * time.Second,
		shutdownTimeout: 10 * time.Second,
		logger:          logger.Discard(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.logger = cfg.logger.With(logger.Component("httpserver"))
	return &Server{cfg: cfg}
}

// Run serves handler until ctx is done or Shutdown is called, then shuts
// down gracefully. It returns ErrStart when the listener cannot be bound.
func (s *Server) Run(ctx context.Context, handler http.Handler) error {
	if handler == nil {
		handler = http.NotFoundHandler()
	}

	s.mu.Lock()
	if s.srv != nil {
		s.mu.Unlock()
		return errors.Join(ErrStart, ErrAlreadyRunning)
	}
	srv := &http.Server{
		Addr:         s.cfg.addr,
		Handler:      handler,
		ReadTimeout:  s.cfg.readTimeout,
		WriteTimeout: s.cfg.writeTimeout,
		IdleTimeout:  s.cfg.idleTimeout,
		ErrorLog:     slog.NewLogLogger(s.cfg.logger.Handler(), slog.LevelWarn),
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	s.srv = srv
	s.mu.Unlock()

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return errors.Join(ErrStart, err)
	}

	s.cfg.logger.InfoContext(ctx, "http server started", slog.String("addr", ln.Addr().String()))
	for _, h := range s.cfg.startHooks {
		h(ctx, ln.Addr())
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	var runErr error
	select {
	case <-ctx.Done():
		runErr = s.Shutdown(context.WithoutCancel(ctx))
		<-errCh
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			// Shutdown was called directly; wait for its hooks.
			s.once.Do(func() {})
			return s.stopErr
		}
		runErr = errors.Join(ErrStart, err)
	}
	return runErr
}

// Shutdown drains in-flight requests, then runs the stop hooks. Repeated
// calls return the first result.
func (s *Server) Shutdown(ctx context.Context) error {
	s.once.Do(func() {
		s.mu.Lock()
		srv := s.srv
		s.mu.Unlock()

		ctx, cancel := context.WithTimeout(ctx, s.cfg.shutdownTimeout)
		defer cancel()

		var errs []error
		if srv != nil {
			if err := srv.Shutdown(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		for _, h := range s.cfg.stopHooks {
			if err := h(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		if err := errors.Join(errs...); err != nil {
			s.stopErr = errors.Join(ErrShutdown, err)
			s.cfg.logger.ErrorContext(ctx, "http server shutdown failed", logger.Error(err))
			return
		}
		s.cfg.logger.InfoContext(ctx, "http server stopped")
	})
	return s.stopErr
}
