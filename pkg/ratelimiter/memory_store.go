package ratelimiter

import (
	"context"
	"sync"
	"time"
)

type bucket struct {
	tokens     int
	lastRefill time.Time
	lastAccess time.Time
}

// refill adds the tokens earned since lastRefill. Partial intervals carry
// over to the next call.
func (b *bucket) refill(now time.Time, cfg Config) {
	intervals := int64(now.Sub(b.lastRefill) / cfg.RefillInterval)
	if intervals <= 0 {
		return
	}
	maxIntervals := int64(cfg.Capacity/cfg.RefillRate + 1)
	b.tokens = min(b.tokens+int(min(intervals, maxIntervals))*cfg.RefillRate, cfg.Capacity)
	if b.tokens == cfg.Capacity {
		b.lastRefill = now
		return
	}
	b.lastRefill = b.lastRefill.Add(time.Duration(intervals) * cfg.RefillInterval)
}

// MemoryStore keeps buckets in process. Buckets idle for longer than the
// stale threshold are dropped by a background sweep.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time

	cleanupInterval time.Duration
	staleAfter      time.Duration
	stop            chan struct{}
	once            sync.Once
}

type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets how often stale buckets are dropped. Zero
// disables the sweep.
func WithCleanupInterval(d time.Duration) MemoryStoreOption {
	return func(s *MemoryStore) { s.cleanupInterval = d }
}

func WithStaleAfter(d time.Duration) MemoryStoreOption {
	return func(s *MemoryStore) {
		if d > 0 {
			s.staleAfter = d
		}
	}
}

func WithClock(now func() time.Time) MemoryStoreOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		buckets:         make(map[string]*bucket),
		now:             time.Now,
		cleanupInterval: 5 * time.Minute,
		staleAfter:      time.Hour,
		stop:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cleanupInterval > 0 {
		go s.cleanup()
	}
	return s
}

// ConsumeTokens takes tokens only when enough are available. A denied call
// leaves the bucket unchanged and reports the shortfall as a negative value.
func (s *MemoryStore) ConsumeTokens(ctx context.Context, key string, tokens int, cfg Config) (int, time.Time, error) {
	if err := ctx.Err(); err != nil {
		return 0, time.Time{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{tokens: cfg.Capacity, lastRefill: now}
		s.buckets[key] = b
	}
	b.refill(now, cfg)
	b.lastAccess = now

	remaining := b.tokens - tokens
	if remaining >= 0 {
		b.tokens = remaining
	}
	return remaining, b.lastRefill.Add(cfg.RefillInterval), nil
}

func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buckets, key)
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

func (s *MemoryStore) cleanup() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.removeStale()
		case <-s.stop:
			return
		}
	}
}

func (s *MemoryStore) removeStale() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, b := range s.buckets {
		if now.Sub(b.lastAccess) > s.staleAfter {
			delete(s.buckets, key)
		}
	}
}

// Close stops the cleanup sweep. Safe to call more than once.
func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.stop) })
}
