// Package storetest holds the behavioural suite every session.Store
// implementation must pass.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessiontrack/pkg/session"
)

// Factory returns an empty store. The suite closes it.
type Factory func(t *testing.T) session.Store

// NewRecord returns a valid active record with a fresh id.
func NewRecord(at time.Time) session.Record {
	return session.Record{
		ID:          uuid.NewString(),
		IPAddress:   "8.8.8.8",
		UserAgent:   "TestAgent/1.0",
		Location:    "Mountain View, United States",
		Fingerprint: "3f1c0e3a0b1d8f0e6c2b0a9d8e7f6a5b4c3d2e1f0a9b8c7d6e5f4a3b2c1d0e9f",
		LastActive:  at.UTC().Truncate(time.Microsecond),
		Status:      session.StatusActive,
	}
}

// Run exercises the Store contract against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("insert then get", func(t *testing.T) {
		s := open(t, newStore)
		rec := NewRecord(base)
		require.NoError(t, s.Insert(ctx, rec))

		got, err := s.Get(ctx, rec.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assertSameRecord(t, rec, *got)
	})

	t.Run("get missing returns nil", func(t *testing.T) {
		s := open(t, newStore)
		got, err := s.Get(ctx, uuid.NewString())
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("duplicate insert fails", func(t *testing.T) {
		s := open(t, newStore)
		rec := NewRecord(base)
		require.NoError(t, s.Insert(ctx, rec))

		err := s.Insert(ctx, rec)
		require.Error(t, err)
		assert.ErrorIs(t, err, session.ErrStorage)
		assert.ErrorIs(t, err, session.ErrDuplicateSession)
	})

	t.Run("invalid record rejected", func(t *testing.T) {
		s := open(t, newStore)
		rec := NewRecord(base)
		rec.ID = ""
		assert.ErrorIs(t, s.Insert(ctx, rec), session.ErrStorage)
	})

	t.Run("touch moves last active forward only", func(t *testing.T) {
		s := open(t, newStore)
		rec := NewRecord(base)
		require.NoError(t, s.Insert(ctx, rec))

		later := base.Add(time.Minute)
		require.NoError(t, s.Touch(ctx, rec.ID, later))
		got, err := s.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.True(t, got.LastActive.Equal(later), "got %s", got.LastActive)

		require.NoError(t, s.Touch(ctx, rec.ID, base))
		got, err = s.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.True(t, got.LastActive.Equal(later), "older touch must not rewind")

		assert.Equal(t, rec.IPAddress, got.IPAddress)
		assert.Equal(t, rec.Fingerprint, got.Fingerprint)
		assert.Equal(t, session.StatusActive, got.Status)
	})

	t.Run("touch missing is a no-op", func(t *testing.T) {
		s := open(t, newStore)
		id := uuid.NewString()
		require.NoError(t, s.Touch(ctx, id, base))
		got, err := s.Get(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		s := open(t, newStore)
		rec := NewRecord(base)
		require.NoError(t, s.Insert(ctx, rec))

		require.NoError(t, s.Delete(ctx, rec.ID))
		require.NoError(t, s.Delete(ctx, rec.ID))
		got, err := s.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("list returns every record", func(t *testing.T) {
		s := open(t, newStore)
		want := map[string]bool{}
		for i := range 5 {
			rec := NewRecord(base.Add(time.Duration(i) * time.Second))
			require.NoError(t, s.Insert(ctx, rec))
			want[rec.ID] = true
		}

		recs, err := s.List(ctx)
		require.NoError(t, err)
		got := map[string]bool{}
		for _, r := range recs {
			got[r.ID] = true
		}
		assert.Equal(t, want, got)
	})

	t.Run("concurrent inserts", func(t *testing.T) {
		s := open(t, newStore)
		var wg sync.WaitGroup
		errs := make(chan error, 20)
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- s.Insert(ctx, NewRecord(base))
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			assert.NoError(t, err)
		}
		recs, err := s.List(ctx)
		require.NoError(t, err)
		assert.Len(t, recs, 20)
	})

	if _, ok := newStoreProbe(t, newStore).(session.StatusUpdater); ok {
		t.Run("set status", func(t *testing.T) {
			s := open(t, newStore)
			rec := NewRecord(base)
			require.NoError(t, s.Insert(ctx, rec))

			su := s.(session.StatusUpdater)
			require.NoError(t, su.SetStatus(ctx, rec.ID, session.StatusClosed))
			got, err := s.Get(ctx, rec.ID)
			require.NoError(t, err)
			assert.Equal(t, session.StatusClosed, got.Status)

			require.NoError(t, su.SetStatus(ctx, uuid.NewString(), session.StatusClosed))
		})
	}

	if _, ok := newStoreProbe(t, newStore).(session.InactiveDeleter); ok {
		t.Run("delete inactive", func(t *testing.T) {
			s := open(t, newStore)
			stale := NewRecord(base)
			fresh := NewRecord(base.Add(time.Hour))
			require.NoError(t, s.Insert(ctx, stale))
			require.NoError(t, s.Insert(ctx, fresh))

			n, err := s.(session.InactiveDeleter).DeleteInactive(ctx, base.Add(time.Minute))
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			got, err := s.Get(ctx, stale.ID)
			require.NoError(t, err)
			assert.Nil(t, got)
			got, err = s.Get(ctx, fresh.ID)
			require.NoError(t, err)
			assert.NotNil(t, got)
		})
	}

	t.Run("closed store rejects operations", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Close())

		err := s.Insert(ctx, NewRecord(base))
		assert.ErrorIs(t, err, session.ErrStorage, fmt.Sprintf("%T", s))
		_, err = s.Get(ctx, uuid.NewString())
		assert.ErrorIs(t, err, session.ErrStorage)
		_, err = s.List(ctx)
		assert.ErrorIs(t, err, session.ErrStorage)
		assert.NoError(t, s.Close())
	})
}

func open(t *testing.T, newStore Factory) session.Store {
	t.Helper()
	s := newStore(t)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// newStoreProbe builds a throwaway store to inspect optional interfaces.
func newStoreProbe(t *testing.T, newStore Factory) session.Store {
	t.Helper()
	return open(t, newStore)
}

func assertSameRecord(t *testing.T, want, got session.Record) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.IPAddress, got.IPAddress)
	assert.Equal(t, want.UserAgent, got.UserAgent)
	assert.Equal(t, want.Location, got.Location)
	assert.Equal(t, want.Fingerprint, got.Fingerprint)
	assert.Equal(t, want.Status, got.Status)
	assert.True(t, want.LastActive.Equal(got.LastActive), "last_active: want %s got %s", want.LastActive, got.LastActive)
}
