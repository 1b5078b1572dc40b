package logger

import (
	"log/slog"
	"time"
)

// Error returns an empty Attr for a nil error, which slog drops.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

func Component(name string) slog.Attr {
	return slog.String("component", name)
}

func Event(name string) slog.Attr {
	return slog.String("event", name)
}

func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}

func SessionID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("session_id", id)
}

func IP(ip string) slog.Attr {
	return slog.String("ip", ip)
}

func Store(kind string) slog.Attr {
	return slog.String("store", kind)
}

func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}
