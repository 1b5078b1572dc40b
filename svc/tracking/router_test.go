package tracking_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessiontrack/pkg/geolocation"
	"github.com/dmitrymomot/sessiontrack/pkg/logger"
	"github.com/dmitrymomot/sessiontrack/pkg/session"
	"github.com/dmitrymomot/sessiontrack/svc/tracking"
)

func newAPI(t *testing.T, opts ...session.Option) (http.Handler, *session.Manager) {
	t.Helper()
	m, err := session.New(append([]session.Option{
		session.WithStore(session.NewMemoryStore()),
		session.WithLogger(logger.Discard()),
	}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	r := chi.NewRouter()
	r.Mount("/sessions", tracking.Router(m, logger.Discard()))
	return r, m
}

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, nil)
	r.RemoteAddr = "8.8.8.8:5555"
	r.Header.Set("User-Agent", "TestAgent/1.0")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestCreateAndFetch(t *testing.T) {
	t.Parallel()

	geoSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "8.8.8.8", r.URL.Query().Get("ip"))
		_, _ = w.Write([]byte(`{"city":"Mountain View","country_name":"United States"}`))
	}))
	t.Cleanup(geoSrv.Close)

	h, _ := newAPI(t, session.WithLocator(geolocation.NewClient(geolocation.Config{
		APIKey:  "key",
		BaseURL: geoSrv.URL,
		Timeout: time.Second,
	})))

	w := serve(h, http.MethodPost, "/sessions")
	require.Equal(t, http.StatusCreated, w.Code)
	id := w.Header().Get("X-Session-ID")
	require.NotEmpty(t, id)

	var body struct {
		Data struct {
			SessionID string `json:"session_id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, id, body.Data.SessionID)

	w = serve(h, http.MethodGet, "/sessions/"+id)
	require.Equal(t, http.StatusOK, w.Code)

	var got struct {
		Data session.Record `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, id, got.Data.ID)
	assert.Equal(t, "8.8.8.8", got.Data.IPAddress)
	assert.Equal(t, "TestAgent/1.0", got.Data.UserAgent)
	assert.Equal(t, "Mountain View, United States", got.Data.Location)
	assert.Equal(t, session.StatusActive, got.Data.Status)
}

func TestList(t *testing.T) {
	t.Parallel()
	h, _ := newAPI(t)

	w := serve(h, http.MethodGet, "/sessions")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[]}`, w.Body.String())

	serve(h, http.MethodPost, "/sessions")
	serve(h, http.MethodPost, "/sessions")

	var body struct {
		Data []session.Record `json:"data"`
	}
	w = serve(h, http.MethodGet, "/sessions")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Data, 2)
}

func TestTouch(t *testing.T) {
	t.Parallel()
	h, m := newAPI(t)

	id, err := m.CreateSession(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	before, err := m.GetSession(context.Background(), id)
	require.NoError(t, err)

	w := serve(h, http.MethodPost, "/sessions/"+id+"/touch")
	assert.Equal(t, http.StatusNoContent, w.Code)

	after, err := m.GetSession(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, after.LastActive.After(before.LastActive))

	w = serve(h, http.MethodPost, "/sessions/unknown/touch")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":{"code":"session.not_found","message":"Not Found"}}`, w.Body.String())
}

func TestClose(t *testing.T) {
	t.Parallel()
	h, m := newAPI(t)

	id, err := m.CreateSession(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	w := serve(h, http.MethodDelete, "/sessions/"+id)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = serve(h, http.MethodGet, "/sessions/"+id)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(h, http.MethodDelete, "/sessions/"+id)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestClosedManager(t *testing.T) {
	t.Parallel()
	h, m := newAPI(t)
	require.NoError(t, m.Close())

	w := serve(h, http.MethodPost, "/sessions")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCreateMiddleware(t *testing.T) {
	t.Parallel()

	m, err := session.New(session.WithStore(session.NewMemoryStore()), session.WithLogger(logger.Discard()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	deny := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})
	}
	r := chi.NewRouter()
	r.Mount("/sessions", tracking.Router(m, logger.Discard(), tracking.WithCreateMiddleware(deny), tracking.WithHeader("X-Sid")))

	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodPost, "/sessions").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/sessions").Code)
}
