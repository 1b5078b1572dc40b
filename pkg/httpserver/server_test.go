package httpserver_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessiontrack/pkg/httpserver"
	"github.com/dmitrymomot/sessiontrack/pkg/logger"
)

func startServer(t *testing.T, opts ...httpserver.Option) (*httpserver.Server, string, context.CancelFunc, <-chan error) {
	t.Helper()

	addrCh := make(chan string, 1)
	opts = append([]httpserver.Option{
		httpserver.WithAddr("127.0.0.1:0"),
		httpserver.WithShutdownTimeout(500 * time.Millisecond),
		httpserver.WithStartHook(func(_ context.Context, addr net.Addr) { addrCh <- addr.String() }),
	}, opts...)
	srv := httpserver.New(opts...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
	}()

	select {
	case addr := <-addrCh:
		return srv, addr, cancel, done
	case err := <-done:
		cancel()
		require.FailNow(t, "server did not start", "%v", err)
	case <-time.After(time.Second):
		cancel()
		require.FailNow(t, "server did not start")
	}
	return nil, "", cancel, done
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		require.FailNow(t, "run did not finish")
		return nil
	}
}

func TestRunAndCancel(t *testing.T) {
	t.Parallel()

	_, addr, cancel, done := startServer(t)
	resp, err := http.Get("http://" + addr)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	assert.NoError(t, waitDone(t, done))
}

func TestManualShutdown(t *testing.T) {
	t.Parallel()

	srv, _, cancel, done := startServer(t)
	defer cancel()

	require.NoError(t, srv.Shutdown(context.Background()))
	require.NoError(t, srv.Shutdown(context.Background()), "second shutdown")
	assert.NoError(t, waitDone(t, done))
}

func TestStartError(t *testing.T) {
	t.Parallel()
	srv := httpserver.New(httpserver.WithAddr(":invalid"))
	err := srv.Run(context.Background(), nil)
	assert.ErrorIs(t, err, httpserver.ErrStart)
}

func TestAlreadyRunning(t *testing.T) {
	t.Parallel()

	srv, _, cancel, done := startServer(t)
	err := srv.Run(context.Background(), nil)
	assert.ErrorIs(t, err, httpserver.ErrStart)
	assert.ErrorIs(t, err, httpserver.ErrAlreadyRunning)

	cancel()
	assert.NoError(t, waitDone(t, done))
}

func TestStopHooks(t *testing.T) {
	t.Parallel()

	var order []string
	var calls atomic.Int32
	hookErr := errors.New("close failed")

	_, _, cancel, done := startServer(t,
		httpserver.WithLogger(logger.Discard()),
		httpserver.WithStopHook(func(context.Context) error {
			calls.Add(1)
			order = append(order, "first")
			return nil
		}),
		httpserver.WithStopHook(func(context.Context) error {
			calls.Add(1)
			order = append(order, "second")
			return hookErr
		}),
	)

	cancel()
	err := waitDone(t, done)
	assert.ErrorIs(t, err, httpserver.ErrShutdown)
	assert.ErrorIs(t, err, hookErr)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestOptionPanics(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		fn   func()
	}{
		{"addr", func() { httpserver.WithAddr("") }},
		{"read", func() { httpserver.WithReadTimeout(-time.Second) }},
		{"write", func() { httpserver.WithWriteTimeout(0) }},
		{"idle", func() { httpserver.WithIdleTimeout(-time.Second) }},
		{"shutdown", func() { httpserver.WithShutdownTimeout(-time.Second) }},
		{"start hook", func() { httpserver.WithStartHook(nil) }},
		{"stop hook", func() { httpserver.WithStopHook(nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Panics(t, tt.fn)
		})
	}

	assert.NotPanics(t, func() { httpserver.WithLogger(nil) })
}

func TestLivenessHandler(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	httpserver.LivenessHandler()(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"OK"}`, w.Body.String())
}

func TestReadinessHandler(t *testing.T) {
	t.Parallel()

	ok := func(context.Context) error { return nil }
	fail := func(context.Context) error { return errors.New("down") }

	t.Run("ready", func(t *testing.T) {
		t.Parallel()
		h := httpserver.ReadinessHandler(logger.Discard(), time.Second, map[string]httpserver.Check{"store": ok})
		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"OK"}`, w.Body.String())
	})

	t.Run("not ready", func(t *testing.T) {
		t.Parallel()
		h := httpserver.ReadinessHandler(logger.Discard(), time.Second, map[string]httpserver.Check{
			"store": ok,
			"redis": fail,
			"mongo": fail,
		})
		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.JSONEq(t, `{"status":"NOT_READY","failed":["mongo","redis"]}`, w.Body.String())
	})
}
