// Package cookie writes and reads HMAC-signed cookies.
//
// Values are signed with the first secret and verified against every secret,
// so secrets can be rotated by prepending a new one.
package cookie

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"
)

const minSecretLength = 32

var (
	ErrNoSecret         = errors.New("cookie.no_secret")
	ErrSecretTooShort   = errors.New("cookie.secret_too_short")
	ErrNotFound         = errors.New("cookie.not_found")
	ErrInvalidFormat    = errors.New("cookie.invalid_format")
	ErrInvalidSignature = errors.New("cookie.invalid_signature")
)

// Config is loaded from the environment. Secrets is a comma separated list.
type Config struct {
	Secrets string `env:"COOKIE_SECRETS"`
	Domain  string `env:"COOKIE_DOMAIN"`
	Secure  bool   `env:"COOKIE_SECURE" envDefault:"false"`
}

// SecretList splits Secrets, dropping blanks.
func (c Config) SecretList() []string {
	var out []string
	for s := range strings.SplitSeq(c.Secrets, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

type Signer struct {
	secrets [][]byte
	domain  string
	secure  bool
}

// New requires at least one secret of 32 or more bytes.
func New(cfg Config) (*Signer, error) {
	secrets := cfg.SecretList()
	if len(secrets) == 0 {
		return nil, ErrNoSecret
	}
	s := &Signer{domain: cfg.Domain, secure: cfg.Secure}
	for i, secret := range secrets {
		if len(secret) < minSecretLength {
			return nil, fmt.Errorf("%w: secret %d has %d bytes", ErrSecretTooShort, i, len(secret))
		}
		s.secrets = append(s.secrets, []byte(secret))
	}
	return s, nil
}

// Set writes an HttpOnly, SameSite=Lax cookie. A zero maxAge makes it a
// browser-session cookie.
func (s *Signer) Set(w http.ResponseWriter, name, value string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    s.sign(value),
		Path:     "/",
		Domain:   s.domain,
		MaxAge:   int(maxAge.Seconds()),
		Secure:   s.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Get returns the verified value of the named cookie.
func (s *Signer) Get(r *http.Request, name string) (string, error) {
	c, err := r.Cookie(name)
	if err != nil {
		return "", ErrNotFound
	}
	return s.verify(c.Value)
}

func (s *Signer) Delete(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Path:     "/",
		Domain:   s.domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   s.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func mac(secret []byte, value string) []byte {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(value))
	return h.Sum(nil)
}

func (s *Signer) sign(value string) string {
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(value)) + "." + enc.EncodeToString(mac(s.secrets[0], value))
}

func (s *Signer) verify(signed string) (string, error) {
	payload, sig, ok := strings.Cut(signed, ".")
	if !ok {
		return "", ErrInvalidFormat
	}
	enc := base64.RawURLEncoding
	value, err := enc.DecodeString(payload)
	if err != nil {
		return "", ErrInvalidFormat
	}
	got, err := enc.DecodeString(sig)
	if err != nil {
		return "", ErrInvalidFormat
	}
	if slices.ContainsFunc(s.secrets, func(secret []byte) bool {
		return hmac.Equal(got, mac(secret, string(value)))
	}) {
		return string(value), nil
	}
	return "", ErrInvalidSignature
}
