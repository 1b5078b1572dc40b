package fingerprint_test

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessiontrack/pkg/fingerprint"
)

func newRequest(headers map[string]string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header = http.Header{}
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	return r
}

func TestDigest(t *testing.T) {
	t.Parallel()

	sum := sha256.Sum256([]byte("visitor-123"))
	want := hex.EncodeToString(sum[:])

	got := fingerprint.Digest("visitor-123")
	assert.Equal(t, want, got)
	assert.Len(t, got, 64)
	assert.Equal(t, strings.ToLower(got), got)
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	fp := fingerprint.New(fingerprint.DefaultConfig())

	t.Run("hashes visitor id header", func(t *testing.T) {
		t.Parallel()
		got, err := fp.Fingerprint(newRequest(map[string]string{"X-Visitor-ID": "abc123"}))
		require.NoError(t, err)
		assert.Equal(t, fingerprint.Digest("abc123"), got)
		assert.NotContains(t, got, "abc123")
	})

	t.Run("visitor id wins over headers", func(t *testing.T) {
		t.Parallel()
		a, err := fp.Fingerprint(newRequest(map[string]string{"X-Visitor-ID": "v1", "User-Agent": "A"}))
		require.NoError(t, err)
		b, err := fp.Fingerprint(newRequest(map[string]string{"X-Visitor-ID": "v1", "User-Agent": "B"}))
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("header fallback is stable", func(t *testing.T) {
		t.Parallel()
		headers := map[string]string{
			"User-Agent":      "TestAgent/1.0",
			"Accept-Language": "en-US",
			"Accept":          "text/html",
		}
		a, err := fp.Fingerprint(newRequest(headers))
		require.NoError(t, err)
		b, err := fp.Fingerprint(newRequest(headers))
		require.NoError(t, err)
		assert.Equal(t, a, b)
		assert.Len(t, a, 64)
	})

	t.Run("different clients differ", func(t *testing.T) {
		t.Parallel()
		a, _ := fp.Fingerprint(newRequest(map[string]string{"User-Agent": "Firefox"}))
		b, _ := fp.Fingerprint(newRequest(map[string]string{"User-Agent": "Chrome"}))
		assert.NotEqual(t, a, b)
	})

	t.Run("no signals", func(t *testing.T) {
		t.Parallel()
		_, err := fp.Fingerprint(newRequest(map[string]string{"Connection": "keep-alive"}))
		assert.ErrorIs(t, err, fingerprint.ErrFingerprint)
		assert.ErrorIs(t, err, fingerprint.ErrNoSignals)
	})

	t.Run("fallback disabled", func(t *testing.T) {
		t.Parallel()
		strict := fingerprint.New(fingerprint.Config{Header: "X-FP"})
		_, err := strict.Fingerprint(newRequest(map[string]string{"User-Agent": "TestAgent/1.0"}))
		assert.ErrorIs(t, err, fingerprint.ErrNoSignals)

		got, err := strict.Fingerprint(newRequest(map[string]string{"X-FP": "id"}))
		require.NoError(t, err)
		assert.Equal(t, fingerprint.Digest("id"), got)
	})

	t.Run("rejects oversized visitor id", func(t *testing.T) {
		t.Parallel()
		_, err := fp.Fingerprint(newRequest(map[string]string{"X-Visitor-ID": strings.Repeat("x", 257)}))
		assert.ErrorIs(t, err, fingerprint.ErrInvalidVisitorID)
		assert.ErrorIs(t, err, fingerprint.ErrFingerprint)
	})
}
