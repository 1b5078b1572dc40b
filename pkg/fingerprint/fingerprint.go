package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"slices"
	"strings"
	"unicode"
)

var (
	ErrFingerprint      = errors.New("fingerprint.failed")
	ErrNoSignals        = errors.New("fingerprint.no_signals")
	ErrInvalidVisitorID = errors.New("fingerprint.invalid_visitor_id")
)

// Config is loaded from the environment with pkg/config.
type Config struct {
	Header         string `env:"FINGERPRINT_HEADER" envDefault:"X-Visitor-ID"`
	HeaderFallback bool   `env:"FINGERPRINT_HEADER_FALLBACK" envDefault:"true"`
	MaxLength      int    `env:"FINGERPRINT_MAX_LENGTH" envDefault:"256"`
}

// DefaultConfig matches the envDefault tags.
func DefaultConfig() Config {
	return Config{Header: "X-Visitor-ID", HeaderFallback: true, MaxLength: 256}
}

// Fingerprinter computes client digests from requests.
type Fingerprinter struct {
	cfg Config
}

func New(cfg Config) *Fingerprinter {
	def := DefaultConfig()
	if cfg.Header == "" {
		cfg.Header = def.Header
	}
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = def.MaxLength
	}
	return &Fingerprinter{cfg: cfg}
}

// Fingerprint returns the digest of the visitor id carried by r, or of its
// header signals when fallback is enabled. Every error wraps ErrFingerprint.
func (f *Fingerprinter) Fingerprint(r *http.Request) (string, error) {
	if id := strings.TrimSpace(r.Header.Get(f.cfg.Header)); id != "" {
		if len(id) > f.cfg.MaxLength || strings.ContainsFunc(id, unicode.IsControl) {
			return "", errors.Join(ErrFingerprint, ErrInvalidVisitorID)
		}
		return Digest(id), nil
	}

	if !f.cfg.HeaderFallback {
		return "", errors.Join(ErrFingerprint, ErrNoSignals)
	}

	signals, ok := headerSignals(r)
	if !ok {
		return "", errors.Join(ErrFingerprint, ErrNoSignals)
	}
	return Digest(signals), nil
}

// Digest is the lowercase hex SHA-256 of token.
func Digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

var stableHeaders = []string{
	"accept",
	"accept-encoding",
	"accept-language",
	"cache-control",
	"connection",
	"sec-fetch-dest",
	"sec-fetch-mode",
	"sec-fetch-site",
	"upgrade-insecure-requests",
	"user-agent",
}

// headerSignals needs at least one of User-Agent, Accept-Language or Accept;
// header names alone say too little about a client.
func headerSignals(r *http.Request) (string, bool) {
	ua := r.UserAgent()
	lang := r.Header.Get("Accept-Language")
	accept := r.Header.Get("Accept")
	if ua == "" && lang == "" && accept == "" {
		return "", false
	}

	var present []string
	for name := range r.Header {
		if n := strings.ToLower(name); slices.Contains(stableHeaders, n) {
			present = append(present, n)
		}
	}
	slices.Sort(present)

	return strings.Join([]string{
		ua,
		lang,
		r.Header.Get("Accept-Encoding"),
		accept,
		strings.Join(present, ","),
	}, "|"), true
}
