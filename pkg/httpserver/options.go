package httpserver

import (
	"context"
	"log/slog"
	"net"
	"time"
)

type Option func(*config)

func WithAddr(addr string) Option {
	if addr == "" {
		panic("httpserver: empty addr")
	}
	return func(c *config) { c.addr = addr }
}

func WithReadTimeout(d time.Duration) Option {
	mustPositive("read timeout", d)
	return func(c *config) { c.readTimeout = d }
}

func WithWriteTimeout(d time.Duration) Option {
	mustPositive("write timeout", d)
	return func(c *config) { c.writeTimeout = d }
}

func WithIdleTimeout(d time.Duration) Option {
	mustPositive("idle timeout", d)
	return func(c *config) { c.idleTimeout = d }
}

// WithShutdownTimeout bounds draining requests and running stop hooks.
func WithShutdownTimeout(d time.Duration) Option {
	mustPositive("shutdown timeout", d)
	return func(c *config) { c.shutdownTimeout = d }
}

// WithLogger sets the logger; nil keeps the discarding default.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithStartHook runs h once the listener is bound, before serving.
func WithStartHook(h func(ctx context.Context, addr net.Addr)) Option {
	if h == nil {
		panic("httpserver: nil start hook")
	}
	return func(c *config) { c.startHooks = append(c.startHooks, h) }
}

// WithStopHook runs h after the server stopped accepting requests. Hooks run
// in registration order and their errors are joined into Shutdown's result.
func WithStopHook(h func(ctx context.Context) error) Option {
	if h == nil {
		panic("httpserver: nil stop hook")
	}
	return func(c *config) { c.stopHooks = append(c.stopHooks, h) }
}

func mustPositive(name string, d time.Duration) {
	if d <= 0 {
		panic("httpserver: " + name + " must be positive")
	}
}
