package session

import (
	"context"
	"time"

	"github.com/dmitrymomot/sessiontrack/pkg/logger"
)

func (m *Manager) sweepLoop() {
	defer close(m.swept)

	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), m.cfg.SweepInterval)
			n, err := m.ExpireInactive(ctx)
			cancel()
			if err != nil {
				m.log.Error("session sweep failed", logger.Error(err))
				continue
			}
			if n > 0 {
				m.log.Info("expired idle sessions", logger.Event("session_sweep"), "count", n)
			}
		}
	}
}

// ExpireInactive deletes sessions idle for longer than Config.TTL and reports
// how many were removed. It does nothing when TTL is zero.
func (m *Manager) ExpireInactive(ctx context.Context) (int, error) {
	if m.cfg.TTL <= 0 {
		return 0, nil
	}
	if err := m.enter(); err != nil {
		return 0, err
	}
	defer m.leave()

	cutoff := m.clock.now().UTC().Add(-m.cfg.TTL)

	if d, ok := m.store.(InactiveDeleter); ok {
		return d.DeleteInactive(ctx, cutoff)
	}

	recs, err := m.store.List(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, rec := range recs {
		if !rec.LastActive.Before(cutoff) {
			continue
		}
		if err := m.store.Delete(ctx, rec.ID); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
