package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/sessiontrack/pkg/async"
	"github.com/dmitrymomot/sessiontrack/pkg/clientip"
	"github.com/dmitrymomot/sessiontrack/pkg/logger"
)

// Locator resolves an IP address to a display location.
type Locator interface {
	Locate(ctx context.Context, ip string) (string, error)
}

// Fingerprinter derives a client digest from a request.
type Fingerprinter interface {
	Fingerprint(r *http.Request) (string, error)
}

// Manager runs the session lifecycle on top of a Store.
type Manager struct {
	store         Store
	locator       Locator
	fingerprinter Fingerprinter
	cfg           Config
	log           *slog.Logger
	clock         clock
	newID         func() (string, error)
	clientIP      func(*http.Request) string

	mu       sync.RWMutex
	closed   bool
	inflight sync.WaitGroup
	stop     chan struct{}
	swept    chan struct{}
	once     sync.Once
}

// New fails with ErrStoreRequired when no store is given. A missing locator
// or fingerprinter records Unknown for that field.
func New(opts ...Option) (*Manager, error) {
	m := &Manager{
		cfg:      DefaultConfig(),
		log:      slog.Default(),
		clock:    clock{now: time.Now},
		newID:    newUUID,
		clientIP: clientip.GetIP,
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.store == nil {
		return nil, ErrStoreRequired
	}
	if m.cfg.RetainClosed {
		if _, ok := m.store.(StatusUpdater); !ok {
			return nil, errors.Join(ErrStoreRequired, errors.New("store cannot retain closed sessions"))
		}
	}
	m.log = m.log.With(logger.Component("session"))

	if m.cfg.TTL > 0 && m.cfg.SweepInterval > 0 {
		m.swept = make(chan struct{})
		go m.sweepLoop()
	}

	return m, nil
}

func newUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (m *Manager) enter() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrManagerClosed
	}
	m.inflight.Add(1)
	return nil
}

func (m *Manager) leave() { m.inflight.Done() }

// CreateSession records a new session for the client behind r and returns its
// id. Geolocation and fingerprinting run concurrently and degrade to Unknown
// on failure; only a store failure is returned.
func (m *Manager) CreateSession(ctx context.Context, r *http.Request) (string, error) {
	if err := m.enter(); err != nil {
		return "", err
	}
	defer m.leave()

	id, err := m.newID()
	if err != nil {
		return "", StorageError(err)
	}

	ip := m.clientIP(r)
	location, fp := m.lookup(ctx, r, ip)

	rec := Record{
		ID:          id,
		IPAddress:   ip,
		UserAgent:   r.UserAgent(),
		Location:    location,
		Fingerprint: fp,
		LastActive:  m.clock.next(),
		Status:      StatusActive,
	}
	if err := m.store.Insert(ctx, rec); err != nil {
		m.log.ErrorContext(ctx, "session insert failed", logger.SessionID(id), logger.Error(err))
		return "", err
	}

	m.log.DebugContext(ctx, "session created",
		logger.SessionID(id),
		logger.IP(ip),
		slog.String("location", location),
	)
	return id, nil
}

// lookup resolves location and fingerprint concurrently and waits for both.
func (m *Manager) lookup(ctx context.Context, r *http.Request, ip string) (location, fp string) {
	if m.cfg.LookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.LookupTimeout)
		defer cancel()
	}

	geo := async.Go(ctx, func(ctx context.Context) (string, error) {
		if m.locator == nil {
			return Unknown, nil
		}
		return m.locator.Locate(ctx, ip)
	})
	// Fingerprinting does not observe ctx; only the wait for it is bounded.
	digest := async.Go(context.WithoutCancel(ctx), func(context.Context) (string, error) {
		if m.fingerprinter == nil {
			return Unknown, nil
		}
		return m.fingerprinter.Fingerprint(r)
	})

	res := async.Settle(ctx, geo, digest)

	location = res[0].Value
	if err := res[0].Err; err != nil || location == "" {
		m.log.WarnContext(ctx, "geolocation unavailable", logger.IP(ip), logger.Error(err))
		location = Unknown
	}
	fp = res[1].Value
	if err := res[1].Err; err != nil || fp == "" {
		m.log.WarnContext(ctx, "fingerprint unavailable", logger.Error(err))
		fp = Unknown
	}
	return location, fp
}

// GetSession returns nil, nil when the session does not exist.
func (m *Manager) GetSession(ctx context.Context, id string) (*Record, error) {
	if err := m.enter(); err != nil {
		return nil, err
	}
	defer m.leave()
	return m.store.Get(ctx, id)
}

// TouchSession refreshes last_active. A missing session is not an error.
func (m *Manager) TouchSession(ctx context.Context, id string) error {
	if err := m.enter(); err != nil {
		return err
	}
	defer m.leave()
	return m.store.Touch(ctx, id, m.clock.next())
}

// TouchSessionStrict is TouchSession that reports ErrSessionNotFound for an
// unknown id and returns the refreshed record.
func (m *Manager) TouchSessionStrict(ctx context.Context, id string) (*Record, error) {
	if err := m.enter(); err != nil {
		return nil, err
	}
	defer m.leave()

	rec, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrSessionNotFound
	}
	at := m.clock.next()
	if err := m.store.Touch(ctx, id, at); err != nil {
		return nil, err
	}
	if at.After(rec.LastActive) {
		rec.LastActive = at
	}
	return rec, nil
}

// CloseSession ends a session. By default the record is deleted; with
// Config.RetainClosed it is kept with StatusClosed.
func (m *Manager) CloseSession(ctx context.Context, id string) error {
	if err := m.enter(); err != nil {
		return err
	}
	defer m.leave()

	if m.cfg.RetainClosed {
		return m.store.(StatusUpdater).SetStatus(ctx, id, StatusClosed)
	}
	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}
	m.log.DebugContext(ctx, "session closed", logger.SessionID(id))
	return nil
}

// DeleteSession removes the record regardless of Config.RetainClosed.
func (m *Manager) DeleteSession(ctx context.Context, id string) error {
	if err := m.enter(); err != nil {
		return err
	}
	defer m.leave()
	return m.store.Delete(ctx, id)
}

// ListSessions returns every stored session in no particular order.
func (m *Manager) ListSessions(ctx context.Context) ([]Record, error) {
	if err := m.enter(); err != nil {
		return nil, err
	}
	defer m.leave()
	return m.store.List(ctx)
}

// Close stops the sweeper, waits for in-flight calls and closes the store.
// It is safe to call more than once.
func (m *Manager) Close() error {
	var err error
	m.once.Do(func() {
		m.mu.Lock()
		m.closed = true
		m.mu.Unlock()

		close(m.stop)
		if m.swept != nil {
			<-m.swept
		}
		m.inflight.Wait()
		err = m.store.Close()
	})
	return err
}
