package apikey_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessiontrack/pkg/apikey"
	"github.com/dmitrymomot/sessiontrack/pkg/logger"
)

func TestMiddleware(t *testing.T) {
	t.Parallel()

	mw, err := apikey.Middleware(apikey.Config{Key: "123456"}, logger.Discard())
	require.NoError(t, err)
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name     string
		key      string
		wantCode int
	}{
		{"valid key", "123456", http.StatusOK},
		{"missing key", "", http.StatusForbidden},
		{"wrong key", "654321", http.StatusForbidden},
		{"prefix of key", "1234", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodGet, "/items", nil)
			if tt.key != "" {
				r.Header.Set("X-API-Key", tt.key)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantCode == http.StatusForbidden {
				assert.JSONEq(t, `{"error":"Forbidden: Invalid API Key"}`, w.Body.String())
			}
		})
	}
}

func TestMiddleware_CustomHeader(t *testing.T) {
	t.Parallel()

	mw, err := apikey.Middleware(apikey.Config{Key: "k", Header: "Authorization-Key"}, nil)
	require.NoError(t, err)
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization-Key", "k")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMiddleware_EmptyKey(t *testing.T) {
	t.Parallel()
	_, err := apikey.Middleware(apikey.Config{}, nil)
	assert.ErrorIs(t, err, apikey.ErrEmptyKey)
}
