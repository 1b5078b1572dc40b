// Package pgstore keeps session records in PostgreSQL.
package pgstore

import (
	"context"
	"embed"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/sessiontrack/pkg/pg"
	"github.com/dmitrymomot/sessiontrack/pkg/session"
)

// Migrations holds the schema for the sessions table.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsTable is the goose version table for Migrations.
const MigrationsTable = "session_migrations"

const (
	insertQuery = `INSERT INTO sessions (session_id, ip_address, user_agent, location, fingerprint, last_active, status)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	selectColumns  = `SELECT session_id, ip_address, user_agent, location, fingerprint, last_active, status FROM sessions`
	touchQuery     = `UPDATE sessions SET last_active = GREATEST(last_active, $2) WHERE session_id = $1`
	setStatusQuery = `UPDATE sessions SET status = $2 WHERE session_id = $1`
	deleteQuery    = `DELETE FROM sessions WHERE session_id = $1`
	expireQuery    = `DELETE FROM sessions WHERE last_active < $1`
)

// Store implements session.Store, session.StatusUpdater and
// session.InactiveDeleter on a pgx pool.
type Store struct {
	pool   *pgxpool.Pool
	closed atomic.Bool
}

// New uses a pool owned by the caller; Close leaves it open. Run Migrate
// before the first call.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate creates or upgrades the sessions table.
func Migrate(ctx context.Context, pool *pgxpool.Pool, log *slog.Logger) error {
	opts := []pg.MigrateOption{pg.WithTable(MigrationsTable)}
	if log != nil {
		opts = append(opts, pg.WithLogger(log))
	}
	if err := pg.Migrate(ctx, pool, Migrations, "migrations", opts...); err != nil {
		return session.StorageError(err)
	}
	return nil
}

func (s *Store) check() error {
	if s.closed.Load() {
		return session.StorageError(session.ErrStoreClosed)
	}
	return nil
}

// Insert fails with session.ErrDuplicateSession when the id is taken.
func (s *Store) Insert(ctx context.Context, rec session.Record) error {
	if err := s.check(); err != nil {
		return err
	}
	if err := session.Validate(rec); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx, insertQuery,
		rec.ID, rec.IPAddress, rec.UserAgent, rec.Location, rec.Fingerprint,
		rec.LastActive.UTC(), string(rec.Status),
	)
	if pg.IsDuplicateKeyError(err) {
		return session.StorageError(errors.Join(session.ErrDuplicateSession, err))
	}
	return session.StorageError(err)
}

// Get returns nil, nil for an unknown id.
func (s *Store) Get(ctx context.Context, id string) (*session.Record, error) {
	if err := s.check(); err != nil {
		return nil, err
	}

	rec, err := scanRecord(s.pool.QueryRow(ctx, selectColumns+` WHERE session_id = $1`, id))
	if pg.IsNotFoundError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, session.StorageError(err)
	}
	return &rec, nil
}

// Touch never moves last_active backwards.
func (s *Store) Touch(ctx context.Context, id string, at time.Time) error {
	if err := s.check(); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, touchQuery, id, at.UTC())
	return session.StorageError(err)
}

func (s *Store) SetStatus(ctx context.Context, id string, status session.Status) error {
	if err := s.check(); err != nil {
		return err
	}
	if !status.Valid() {
		return session.StorageError(session.ErrInvalidRecord)
	}
	_, err := s.pool.Exec(ctx, setStatusQuery, id, string(status))
	return session.StorageError(err)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.check(); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, deleteQuery, id)
	return session.StorageError(err)
}

// DeleteInactive removes rows last active before the cutoff and reports
// how many went.
func (s *Store) DeleteInactive(ctx context.Context, before time.Time) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	tag, err := s.pool.Exec(ctx, expireQuery, before.UTC())
	if err != nil {
		return 0, session.StorageError(err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) List(ctx context.Context) ([]session.Record, error) {
	if err := s.check(); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, selectColumns)
	if err != nil {
		return nil, session.StorageError(err)
	}
	recs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (session.Record, error) {
		return scanRecord(row)
	})
	if err != nil {
		return nil, session.StorageError(err)
	}
	return recs, nil
}

// Close marks the store closed. The pool stays open.
func (s *Store) Close() error {
	s.closed.Store(true)
	return nil
}

// Healthcheck pings the underlying pool.
func (s *Store) Healthcheck(ctx context.Context) error {
	if err := s.check(); err != nil {
		return err
	}
	return pg.Healthcheck(s.pool)(ctx)
}

func scanRecord(row pgx.Row) (session.Record, error) {
	var (
		rec    session.Record
		status string
	)
	err := row.Scan(&rec.ID, &rec.IPAddress, &rec.UserAgent, &rec.Location, &rec.Fingerprint, &rec.LastActive, &status)
	rec.Status = session.Status(status)
	rec.LastActive = rec.LastActive.UTC()
	return rec, err
}
