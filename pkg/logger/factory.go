package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"github.com/dmitrymomot/sessiontrack/pkg/environment"
)

// Format selects the handler used to render records.
type Format string

const (
	FormatJSON   Format = "json"
	FormatText   Format = "text"
	FormatPretty Format = "pretty"
)

type options struct {
	level      slog.Level
	format     Format
	output     io.Writer
	addSource  bool
	attrs      []slog.Attr
	extractors []ContextExtractor
}

// Option configures New.
type Option func(*options)

func WithLevel(l slog.Level) Option {
	return func(o *options) { o.level = l }
}

// WithLevelName parses names such as "debug" or "WARN".
// Unknown names leave the level unchanged.
func WithLevelName(name string) Option {
	return func(o *options) {
		var l slog.Level
		if err := l.UnmarshalText([]byte(strings.TrimSpace(name))); err == nil {
			o.level = l
		}
	}
}

// WithFormat panics on an unknown format so misconfiguration fails at startup.
func WithFormat(f Format) Option {
	return func(o *options) {
		switch f {
		case FormatJSON, FormatText, FormatPretty:
			o.format = f
		default:
			panic(fmt.Errorf("logger: unknown format %q", f))
		}
	}
}

func WithOutput(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.output = w
		}
	}
}

func WithSource() Option {
	return func(o *options) { o.addSource = true }
}

// WithAttr adds attributes to every record.
func WithAttr(attrs ...slog.Attr) Option {
	return func(o *options) { o.attrs = append(o.attrs, attrs...) }
}

func WithContextExtractors(extractors ...ContextExtractor) Option {
	return func(o *options) {
		for _, ex := range extractors {
			if ex != nil {
				o.extractors = append(o.extractors, ex)
			}
		}
	}
}

// WithContextValue logs ctx.Value(key) under name whenever it is set.
func WithContextValue(name string, key any) Option {
	return WithContextExtractors(ValueExtractor(name, key))
}

// ForEnvironment applies the level and format conventions of env and tags
// every record with the service name and environment.
func ForEnvironment(env environment.Environment, service string) Option {
	return func(o *options) {
		switch env {
		case environment.Production, environment.Staging:
			o.level = slog.LevelInfo
			o.format = FormatJSON
		default:
			o.level = slog.LevelDebug
			o.format = FormatPretty
		}
		if service != "" {
			o.attrs = append(o.attrs, slog.String("service", service))
		}
		o.attrs = append(o.attrs, slog.String("env", env.String()))
	}
}

// New creates a logger. Without options it writes JSON at info level to stdout.
func New(opts ...Option) *slog.Logger {
	o := &options{
		level:  slog.LevelInfo,
		format: FormatJSON,
		output: os.Stdout,
	}
	for _, opt := range opts {
		opt(o)
	}

	var h slog.Handler
	switch o.format {
	case FormatPretty:
		h = tint.NewHandler(o.output, &tint.Options{
			Level:      o.level,
			AddSource:  o.addSource,
			TimeFormat: time.Kitchen,
			NoColor:    !isTerminal(o.output),
		})
	case FormatText:
		h = slog.NewTextHandler(o.output, &slog.HandlerOptions{Level: o.level, AddSource: o.addSource})
	default:
		h = slog.NewJSONHandler(o.output, &slog.HandlerOptions{Level: o.level, AddSource: o.addSource})
	}

	if len(o.attrs) > 0 {
		h = h.WithAttrs(o.attrs)
	}

	return slog.New(newContextHandler(h, o.extractors))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
