// Package clientip determines the originating client address of a request
// served behind CDNs and reverse proxies.
package clientip

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// DefaultHeaders lists proxy headers in the order they are trusted.
// X-Forwarded-For is scanned for its first valid entry.
var DefaultHeaders = []string{
	"CF-Connecting-IP",
	"DO-Connecting-IP",
	"X-Forwarded-For",
	"X-Real-IP",
}

// Resolver extracts the client IP using a fixed header order, falling back to
// RemoteAddr.
type Resolver struct {
	headers []string
}

// NewResolver uses DefaultHeaders when none are given. Pass an empty,
// non-nil slice to trust RemoteAddr only.
func NewResolver(headers []string) *Resolver {
	if headers == nil {
		headers = DefaultHeaders
	}
	return &Resolver{headers: headers}
}

// IP returns the normalized client address or "" if none is valid.
func (res *Resolver) IP(r *http.Request) string {
	for _, h := range res.headers {
		v := r.Header.Get(h)
		if v == "" {
			continue
		}
		for part := range strings.SplitSeq(v, ",") {
			if ip := normalize(part); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return normalize(r.RemoteAddr)
	}
	return normalize(host)
}

var defaultResolver = NewResolver(nil)

// GetIP resolves with DefaultHeaders.
func GetIP(r *http.Request) string {
	return defaultResolver.IP(r)
}

// IsPublic reports whether ip is a routable unicast address, i.e. something a
// geolocation service can say anything about.
func IsPublic(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	return !(addr.IsLoopback() || addr.IsPrivate() || addr.IsUnspecified() ||
		addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() || addr.IsMulticast())
}

func normalize(s string) string {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return ""
	}
	return addr.Unmap().WithZone("").String()
}

type contextKey struct{}

func WithContext(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, contextKey{}, ip)
}

func FromContext(ctx context.Context) string {
	ip, _ := ctx.Value(contextKey{}).(string)
	return ip
}

// Middleware stores the resolved IP in the request context.
func (res *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), res.IP(r))))
	})
}
