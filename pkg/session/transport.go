package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/sessiontrack/pkg/cookie"
)

// Transport carries the session id between client and server.
type Transport interface {
	// Extract returns the id presented by the client, if any.
	Extract(r *http.Request) (string, bool)
	Issue(w http.ResponseWriter, id string)
	Clear(w http.ResponseWriter)
}

// normalizeID accepts only canonical UUIDs so arbitrary header values never
// reach the store.
func normalizeID(raw string) (string, bool) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	return id.String(), true
}

// HeaderTransport reads and writes the id in a plain header.
type HeaderTransport struct {
	name string
}

// NewHeaderTransport uses the named header, X-Session-ID when name is empty.
func NewHeaderTransport(name string) *HeaderTransport {
	if name == "" {
		name = DefaultConfig().Header
	}
	return &HeaderTransport{name: name}
}

func (t *HeaderTransport) Extract(r *http.Request) (string, bool) {
	return normalizeID(r.Header.Get(t.name))
}

func (t *HeaderTransport) Issue(w http.ResponseWriter, id string) {
	w.Header().Set(t.name, id)
}

func (t *HeaderTransport) Clear(w http.ResponseWriter) {
	w.Header().Del(t.name)
}

// CookieTransport keeps the id in a signed cookie.
type CookieTransport struct {
	signer *cookie.Signer
	name   string
	maxAge time.Duration
}

// NewCookieTransport issues cookies that live for maxAge, or for the browser
// session when maxAge is zero.
func NewCookieTransport(signer *cookie.Signer, name string, maxAge time.Duration) *CookieTransport {
	if name == "" {
		name = DefaultConfig().CookieName
	}
	return &CookieTransport{signer: signer, name: name, maxAge: maxAge}
}

func (t *CookieTransport) Extract(r *http.Request) (string, bool) {
	v, err := t.signer.Get(r, t.name)
	if err != nil {
		return "", false
	}
	return normalizeID(v)
}

func (t *CookieTransport) Issue(w http.ResponseWriter, id string) {
	t.signer.Set(w, t.name, id, t.maxAge)
}

func (t *CookieTransport) Clear(w http.ResponseWriter) {
	t.signer.Delete(w, t.name)
}

// MultiTransport extracts from the first transport that yields an id and
// issues through all of them.
type MultiTransport []Transport

func (mt MultiTransport) Extract(r *http.Request) (string, bool) {
	for _, t := range mt {
		if id, ok := t.Extract(r); ok {
			return id, true
		}
	}
	return "", false
}

func (mt MultiTransport) Issue(w http.ResponseWriter, id string) {
	for _, t := range mt {
		t.Issue(w, id)
	}
}

func (mt MultiTransport) Clear(w http.ResponseWriter) {
	for _, t := range mt {
		t.Clear(w)
	}
}
