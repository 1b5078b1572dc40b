package session_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessiontrack/pkg/fingerprint"
	"github.com/dmitrymomot/sessiontrack/pkg/geolocation"
	"github.com/dmitrymomot/sessiontrack/pkg/logger"
	"github.com/dmitrymomot/sessiontrack/pkg/session"
)

type mockLocator struct{ mock.Mock }

func (m *mockLocator) Locate(ctx context.Context, ip string) (string, error) {
	args := m.Called(ctx, ip)
	return args.String(0), args.Error(1)
}

type mockFingerprinter struct{ mock.Mock }

func (m *mockFingerprinter) Fingerprint(r *http.Request) (string, error) {
	args := m.Called(r)
	return args.String(0), args.Error(1)
}

// failingStore fails inserts and reads with a storage error.
type failingStore struct{ *session.MemoryStore }

var errDiskFull = errors.New("disk full")

func newFailingStore() failingStore {
	return failingStore{MemoryStore: session.NewMemoryStore()}
}

func (failingStore) Insert(context.Context, session.Record) error {
	return session.StorageError(errDiskFull)
}

func (failingStore) Get(context.Context, string) (*session.Record, error) {
	return nil, session.StorageError(errDiskFull)
}

func newRequest(ip, ua string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = ip + ":40000"
	r.Header.Set("User-Agent", ua)
	return r
}

func setupManager(t *testing.T, opts ...session.Option) (*session.Manager, *session.MemoryStore) {
	t.Helper()
	store := session.NewMemoryStore()
	m, err := session.New(append([]session.Option{
		session.WithStore(store),
		session.WithLogger(logger.Discard()),
	}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m, store
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("store required", func(t *testing.T) {
		t.Parallel()
		_, err := session.New()
		assert.ErrorIs(t, err, session.ErrStoreRequired)
	})

	t.Run("retention needs status updater", func(t *testing.T) {
		t.Parallel()
		cfg := session.DefaultConfig()
		cfg.RetainClosed = true
		_, err := session.New(session.WithStore(listOnlyStore{s: session.NewMemoryStore()}), session.WithConfig(cfg))
		assert.ErrorIs(t, err, session.ErrStoreRequired)
	})
}

func TestManager_CreateSession(t *testing.T) {
	t.Parallel()

	t.Run("records lookups", func(t *testing.T) {
		t.Parallel()
		geo := &mockLocator{}
		geo.On("Locate", mock.Anything, "8.8.8.8").Return("Mountain View, United States", nil)

		m, _ := setupManager(t,
			session.WithLocator(geo),
			session.WithFingerprinter(fingerprint.New(fingerprint.DefaultConfig())),
		)

		r := newRequest("8.8.8.8", "TestAgent/1.0")
		r.Header.Set("X-Visitor-ID", "visitor-42")

		id, err := m.CreateSession(context.Background(), r)
		require.NoError(t, err)

		rec, err := m.GetSession(context.Background(), id)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, id, rec.ID)
		assert.Equal(t, "8.8.8.8", rec.IPAddress)
		assert.Equal(t, "TestAgent/1.0", rec.UserAgent)
		assert.Equal(t, "Mountain View, United States", rec.Location)
		assert.Equal(t, fingerprint.Digest("visitor-42"), rec.Fingerprint)
		assert.NotEqual(t, "visitor-42", rec.Fingerprint)
		assert.Equal(t, session.StatusActive, rec.Status)
		assert.False(t, rec.LastActive.IsZero())
		geo.AssertExpectations(t)
	})

	t.Run("degrades when both lookups fail", func(t *testing.T) {
		t.Parallel()
		geo := &mockLocator{}
		geo.On("Locate", mock.Anything, mock.Anything).Return("", geolocation.ErrGeoLookup)
		fp := &mockFingerprinter{}
		fp.On("Fingerprint", mock.Anything).Return("", fingerprint.ErrFingerprint)

		m, _ := setupManager(t, session.WithLocator(geo), session.WithFingerprinter(fp))

		id, err := m.CreateSession(context.Background(), newRequest("8.8.8.8", "TestAgent/1.0"))
		require.NoError(t, err)

		rec, err := m.GetSession(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, session.Unknown, rec.Location)
		assert.Equal(t, session.Unknown, rec.Fingerprint)
		assert.Equal(t, session.StatusActive, rec.Status)
	})

	t.Run("geolocation timeout records unknown", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		t.Cleanup(srv.Close)

		geo := geolocation.NewClient(geolocation.Config{
			APIKey:  "k",
			BaseURL: srv.URL,
			Timeout: 50 * time.Millisecond,
		})
		m, _ := setupManager(t, session.WithLocator(geo))

		id, err := m.CreateSession(context.Background(), newRequest("8.8.8.8", "TestAgent/1.0"))
		require.NoError(t, err)
		rec, err := m.GetSession(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, session.Unknown, rec.Location)
		assert.Equal(t, session.StatusActive, rec.Status)
	})

	t.Run("geolocation scenario over http", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"city":"Mountain View","country_name":"United States"}`))
		}))
		t.Cleanup(srv.Close)

		geo := geolocation.NewClient(geolocation.Config{APIKey: "k", BaseURL: srv.URL, Timeout: time.Second})
		m, _ := setupManager(t, session.WithLocator(geo))

		id, err := m.CreateSession(context.Background(), newRequest("8.8.8.8", "TestAgent/1.0"))
		require.NoError(t, err)
		rec, err := m.GetSession(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "Mountain View, United States", rec.Location)
	})

	t.Run("lookup timeout bounds slow collaborators", func(t *testing.T) {
		t.Parallel()
		release := make(chan struct{})
		t.Cleanup(func() { close(release) })

		geo := &mockLocator{}
		geo.On("Locate", mock.Anything, mock.Anything).Return("late", nil).Run(func(mock.Arguments) { <-release })

		cfg := session.DefaultConfig()
		cfg.LookupTimeout = 30 * time.Millisecond
		m, _ := setupManager(t, session.WithLocator(geo), session.WithConfig(cfg))

		start := time.Now()
		id, err := m.CreateSession(context.Background(), newRequest("8.8.8.8", "ua"))
		require.NoError(t, err)
		assert.Less(t, time.Since(start), time.Second)

		rec, err := m.GetSession(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, session.Unknown, rec.Location)
	})

	t.Run("slow geolocation keeps a ready fingerprint", func(t *testing.T) {
		t.Parallel()
		geo := &mockLocator{}
		geo.On("Locate", mock.Anything, mock.Anything).Return("", context.DeadlineExceeded).Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		})
		fp := &mockFingerprinter{}
		fp.On("Fingerprint", mock.Anything).Return("deadbeef", nil)

		cfg := session.DefaultConfig()
		cfg.LookupTimeout = 10 * time.Millisecond
		m, _ := setupManager(t,
			session.WithLocator(geo),
			session.WithFingerprinter(fp),
			session.WithConfig(cfg),
		)

		for range 100 {
			id, err := m.CreateSession(context.Background(), newRequest("8.8.8.8", "ua"))
			require.NoError(t, err)
			rec, err := m.GetSession(context.Background(), id)
			require.NoError(t, err)
			require.Equal(t, "deadbeef", rec.Fingerprint)
			require.Equal(t, session.Unknown, rec.Location)
		}
	})

	t.Run("missing collaborators record unknown", func(t *testing.T) {
		t.Parallel()
		m, _ := setupManager(t)

		id, err := m.CreateSession(context.Background(), newRequest("8.8.8.8", "ua"))
		require.NoError(t, err)
		rec, err := m.GetSession(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, session.Unknown, rec.Location)
		assert.Equal(t, session.Unknown, rec.Fingerprint)
	})

	t.Run("ids are unique", func(t *testing.T) {
		t.Parallel()
		m, _ := setupManager(t)

		const n = 200
		var (
			mu  sync.Mutex
			wg  sync.WaitGroup
			ids = make(map[string]struct{}, n)
		)
		for range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				id, err := m.CreateSession(context.Background(), newRequest("8.8.8.8", "ua"))
				assert.NoError(t, err)
				mu.Lock()
				ids[id] = struct{}{}
				mu.Unlock()
			}()
		}
		wg.Wait()
		assert.Len(t, ids, n)

		recs, err := m.ListSessions(context.Background())
		require.NoError(t, err)
		assert.Len(t, recs, n)
	})

	t.Run("storage failure is surfaced", func(t *testing.T) {
		t.Parallel()
		m, err := session.New(session.WithStore(newFailingStore()), session.WithLogger(logger.Discard()))
		require.NoError(t, err)

		_, err = m.CreateSession(context.Background(), newRequest("8.8.8.8", "ua"))
		assert.ErrorIs(t, err, session.ErrStorage)
		assert.ErrorIs(t, err, errDiskFull)
	})

	t.Run("custom id generator and client ip", func(t *testing.T) {
		t.Parallel()
		m, _ := setupManager(t,
			session.WithIDGenerator(func() (string, error) { return "fixed-id", nil }),
			session.WithClientIP(func(*http.Request) string { return "203.0.113.9" }),
		)

		id, err := m.CreateSession(context.Background(), newRequest("8.8.8.8", "ua"))
		require.NoError(t, err)
		assert.Equal(t, "fixed-id", id)

		rec, err := m.GetSession(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "203.0.113.9", rec.IPAddress)

		_, err = m.CreateSession(context.Background(), newRequest("8.8.8.8", "ua"))
		assert.ErrorIs(t, err, session.ErrDuplicateSession)
	})
}

func TestManager_GetSession(t *testing.T) {
	t.Parallel()

	t.Run("absent session", func(t *testing.T) {
		t.Parallel()
		m, _ := setupManager(t)
		rec, err := m.GetSession(context.Background(), "does-not-exist")
		assert.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("storage error is distinct from absence", func(t *testing.T) {
		t.Parallel()
		m, err := session.New(session.WithStore(newFailingStore()), session.WithLogger(logger.Discard()))
		require.NoError(t, err)
		_, err = m.GetSession(context.Background(), "x")
		assert.ErrorIs(t, err, session.ErrStorage)
	})
}

func TestManager_TouchSession(t *testing.T) {
	t.Parallel()

	t.Run("strictly increases last active", func(t *testing.T) {
		t.Parallel()
		fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		m, _ := setupManager(t, session.WithClock(func() time.Time { return fixed }))

		id, err := m.CreateSession(context.Background(), newRequest("8.8.8.8", "ua"))
		require.NoError(t, err)
		before, err := m.GetSession(context.Background(), id)
		require.NoError(t, err)

		prev := before.LastActive
		for range 3 {
			require.NoError(t, m.TouchSession(context.Background(), id))
			after, err := m.GetSession(context.Background(), id)
			require.NoError(t, err)
			assert.True(t, after.LastActive.After(prev), "%s should be after %s", after.LastActive, prev)
			assert.Equal(t, session.StatusActive, after.Status)
			prev = after.LastActive
		}
	})

	t.Run("missing session is a no-op", func(t *testing.T) {
		t.Parallel()
		m, store := setupManager(t)
		require.NoError(t, m.TouchSession(context.Background(), "missing"))

		recs, err := store.List(context.Background())
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("strict touch reports missing", func(t *testing.T) {
		t.Parallel()
		m, _ := setupManager(t)
		_, err := m.TouchSessionStrict(context.Background(), "missing")
		assert.ErrorIs(t, err, session.ErrSessionNotFound)
	})

	t.Run("strict touch returns refreshed record", func(t *testing.T) {
		t.Parallel()
		m, _ := setupManager(t)
		id, err := m.CreateSession(context.Background(), newRequest("8.8.8.8", "ua"))
		require.NoError(t, err)
		before, _ := m.GetSession(context.Background(), id)

		rec, err := m.TouchSessionStrict(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, rec.LastActive.After(before.LastActive))

		stored, _ := m.GetSession(context.Background(), id)
		assert.True(t, stored.LastActive.Equal(rec.LastActive))
	})
}

func TestManager_CloseSession(t *testing.T) {
	t.Parallel()

	t.Run("deletes by default", func(t *testing.T) {
		t.Parallel()
		m, _ := setupManager(t)
		id, err := m.CreateSession(context.Background(), newRequest("8.8.8.8", "ua"))
		require.NoError(t, err)

		require.NoError(t, m.CloseSession(context.Background(), id))
		rec, err := m.GetSession(context.Background(), id)
		require.NoError(t, err)
		assert.Nil(t, rec)

		assert.NoError(t, m.CloseSession(context.Background(), id))
	})

	t.Run("retains closed record when configured", func(t *testing.T) {
		t.Parallel()
		cfg := session.DefaultConfig()
		cfg.RetainClosed = true
		m, _ := setupManager(t, session.WithConfig(cfg))

		id, err := m.CreateSession(context.Background(), newRequest("8.8.8.8", "ua"))
		require.NoError(t, err)
		require.NoError(t, m.CloseSession(context.Background(), id))

		rec, err := m.GetSession(context.Background(), id)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, session.StatusClosed, rec.Status)
		assert.False(t, rec.IsActive())
	})

	t.Run("delete then get is absent", func(t *testing.T) {
		t.Parallel()
		cfg := session.DefaultConfig()
		cfg.RetainClosed = true
		m, _ := setupManager(t, session.WithConfig(cfg))

		id, err := m.CreateSession(context.Background(), newRequest("8.8.8.8", "ua"))
		require.NoError(t, err)
		require.NoError(t, m.DeleteSession(context.Background(), id))

		rec, err := m.GetSession(context.Background(), id)
		require.NoError(t, err)
		assert.Nil(t, rec)
	})
}

func TestManager_ExpireInactive(t *testing.T) {
	t.Parallel()

	t.Run("removes idle sessions", func(t *testing.T) {
		t.Parallel()
		var (
			mu  sync.Mutex
			now = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		)
		clock := func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return now
		}
		advance := func(d time.Duration) {
			mu.Lock()
			now = now.Add(d)
			mu.Unlock()
		}

		cfg := session.DefaultConfig()
		cfg.TTL = time.Hour
		cfg.SweepInterval = 0
		m, _ := setupManager(t, session.WithConfig(cfg), session.WithClock(clock))

		stale, err := m.CreateSession(context.Background(), newRequest("8.8.8.8", "ua"))
		require.NoError(t, err)
		advance(50 * time.Minute)
		fresh, err := m.CreateSession(context.Background(), newRequest("8.8.8.8", "ua"))
		require.NoError(t, err)
		advance(20 * time.Minute)

		n, err := m.ExpireInactive(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		rec, _ := m.GetSession(context.Background(), stale)
		assert.Nil(t, rec)
		rec, _ = m.GetSession(context.Background(), fresh)
		assert.NotNil(t, rec)
	})

	t.Run("falls back to list and delete", func(t *testing.T) {
		t.Parallel()
		store := listOnlyStore{s: session.NewMemoryStore()}
		cfg := session.DefaultConfig()
		cfg.TTL = time.Minute
		cfg.SweepInterval = 0
		now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		m, err := session.New(
			session.WithStore(store),
			session.WithConfig(cfg),
			session.WithLogger(logger.Discard()),
			session.WithClock(func() time.Time { return now }),
		)
		require.NoError(t, err)
		t.Cleanup(func() { _ = m.Close() })

		_, err = m.CreateSession(context.Background(), newRequest("8.8.8.8", "ua"))
		require.NoError(t, err)
		now = now.Add(2 * time.Minute)

		n, err := m.ExpireInactive(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("disabled without ttl", func(t *testing.T) {
		t.Parallel()
		m, _ := setupManager(t)
		n, err := m.ExpireInactive(context.Background())
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("background sweeper", func(t *testing.T) {
		t.Parallel()
		cfg := session.DefaultConfig()
		cfg.TTL = time.Nanosecond
		cfg.SweepInterval = 10 * time.Millisecond
		m, store := setupManager(t, session.WithConfig(cfg))

		_, err := m.CreateSession(context.Background(), newRequest("8.8.8.8", "ua"))
		require.NoError(t, err)

		assert.Eventually(t, func() bool {
			recs, err := store.List(context.Background())
			return err == nil && len(recs) == 0
		}, time.Second, 10*time.Millisecond)
	})
}

func TestManager_Close(t *testing.T) {
	t.Parallel()

	m, store := setupManager(t)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	_, err := m.CreateSession(context.Background(), newRequest("8.8.8.8", "ua"))
	assert.ErrorIs(t, err, session.ErrManagerClosed)
	_, err = m.GetSession(context.Background(), "x")
	assert.ErrorIs(t, err, session.ErrManagerClosed)
	assert.ErrorIs(t, m.TouchSession(context.Background(), "x"), session.ErrManagerClosed)

	_, err = store.List(context.Background())
	assert.ErrorIs(t, err, session.ErrStoreClosed)
}

// listOnlyStore implements only the required Store methods.
type listOnlyStore struct {
	s *session.MemoryStore
}

func (l listOnlyStore) Insert(ctx context.Context, rec session.Record) error {
	return l.s.Insert(ctx, rec)
}

func (l listOnlyStore) Get(ctx context.Context, id string) (*session.Record, error) {
	return l.s.Get(ctx, id)
}

func (l listOnlyStore) Touch(ctx context.Context, id string, at time.Time) error {
	return l.s.Touch(ctx, id, at)
}

func (l listOnlyStore) Delete(ctx context.Context, id string) error {
	return l.s.Delete(ctx, id)
}

func (l listOnlyStore) List(ctx context.Context) ([]session.Record, error) {
	return l.s.List(ctx)
}

func (l listOnlyStore) Close() error { return l.s.Close() }
