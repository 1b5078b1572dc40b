// Package redisstore keeps session records in Redis hashes with a set
// indexing every id. Every key carries the prefix as a hash tag, so the
// multi-key scripts also run on Redis Cluster.
package redisstore

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/sessiontrack/pkg/session"
)

// DefaultPrefix is used when WithPrefix is not given.
const DefaultPrefix = "sessiontrack:"

const (
	fieldIP          = "ip_address"
	fieldUserAgent   = "user_agent"
	fieldLocation    = "location"
	fieldFingerprint = "fingerprint"
	fieldLastActive  = "last_active" // unix microseconds
	fieldStatus      = "status"
)

// KEYS[1] record, KEYS[2] index; ARGV[1] id, ARGV[2..] field/value pairs.
var insertScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV, 2))
redis.call('SADD', KEYS[2], ARGV[1])
return 1
`)

// KEYS[1] record; ARGV[1] unix microseconds.
var touchScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'last_active')
if cur and tonumber(cur) < tonumber(ARGV[1]) then
	redis.call('HSET', KEYS[1], 'last_active', ARGV[1])
end
return 0
`)

// KEYS[1] record; ARGV[1] status.
var setStatusScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	redis.call('HSET', KEYS[1], 'status', ARGV[1])
end
return 0
`)

// KEYS[1] record, KEYS[2] index; ARGV[1] id, ARGV[2] cutoff microseconds.
var expireScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'last_active')
if not cur then
	redis.call('SREM', KEYS[2], ARGV[1])
	return 0
end
if tonumber(cur) < tonumber(ARGV[2]) then
	redis.call('DEL', KEYS[1])
	redis.call('SREM', KEYS[2], ARGV[1])
	return 1
end
return 0
`)

// Store implements session.Store, session.StatusUpdater and
// session.InactiveDeleter on a go-redis client.
type Store struct {
	client redis.UniversalClient
	prefix string
	closed atomic.Bool
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix namespaces every key the store writes. An empty prefix keeps
// DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// New wraps a client owned by the caller; Close leaves it open.
func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{client: client, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Keys look like {prefix}session:<id> and {prefix}sessions. Cluster hashes
// only the part inside the braces, so a record and the index share a slot.
func (s *Store) key(id string) string { return "{" + s.prefix + "}session:" + id }
func (s *Store) index() string        { return "{" + s.prefix + "}sessions" }

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

	ok, err := insertScript.Run(ctx, s.client, []string{s.key(rec.ID), s.index()},
		rec.ID,
		fieldIP, rec.IPAddress,
		fieldUserAgent, rec.UserAgent,
		fieldLocation, rec.Location,
		fieldFingerprint, rec.Fingerprint,
		fieldLastActive, rec.LastActive.UnixMicro(),
		fieldStatus, string(rec.Status),
	).Int()
	if err != nil {
		return session.StorageError(err)
	}
	if ok == 0 {
		return session.StorageError(session.ErrDuplicateSession)
	}
	return nil
}

// Get returns nil, nil for an unknown id.
func (s *Store) Get(ctx context.Context, id string) (*session.Record, error) {
	if err := s.check(); err != nil {
		return nil, err
	}

	fields, err := s.client.HGetAll(ctx, s.key(id)).Result()
	if err != nil {
		return nil, session.StorageError(err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	rec, err := decode(id, fields)
	if err != nil {
		return nil, session.StorageError(err)
	}
	return &rec, nil
}

// Touch never moves last_active backwards and ignores unknown ids.
func (s *Store) Touch(ctx context.Context, id string, at time.Time) error {
	if err := s.check(); err != nil {
		return err
	}
	err := touchScript.Run(ctx, s.client, []string{s.key(id)}, at.UnixMicro()).Err()
	return session.StorageError(ignoreNil(err))
}

func (s *Store) SetStatus(ctx context.Context, id string, status session.Status) error {
	if err := s.check(); err != nil {
		return err
	}
	if !status.Valid() {
		return session.StorageError(session.ErrInvalidRecord)
	}
	err := setStatusScript.Run(ctx, s.client, []string{s.key(id)}, string(status)).Err()
	return session.StorageError(ignoreNil(err))
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.check(); err != nil {
		return err
	}
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, s.key(id))
		p.SRem(ctx, s.index(), id)
		return nil
	})
	return session.StorageError(err)
}

// DeleteInactive walks the index and expires each stale record atomically.
func (s *Store) DeleteInactive(ctx context.Context, before time.Time) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}

	ids, err := s.client.SMembers(ctx, s.index()).Result()
	if err != nil {
		return 0, session.StorageError(err)
	}
	cutoff := before.UnixMicro()
	n := 0
	for _, id := range ids {
		removed, err := expireScript.Run(ctx, s.client, []string{s.key(id), s.index()}, id, cutoff).Int()
		if err != nil {
			return n, session.StorageError(err)
		}
		n += removed
	}
	return n, nil
}

// List skips ids whose record vanished while listing.
func (s *Store) List(ctx context.Context) ([]session.Record, error) {
	if err := s.check(); err != nil {
		return nil, err
	}

	ids, err := s.client.SMembers(ctx, s.index()).Result()
	if err != nil {
		return nil, session.StorageError(err)
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = p.HGetAll(ctx, s.key(id))
		}
		return nil
	})
	if err != nil {
		return nil, session.StorageError(err)
	}

	out := make([]session.Record, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue // deleted between SMEMBERS and HGETALL
		}
		rec, err := decode(ids[i], fields)
		if err != nil {
			return nil, session.StorageError(err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Close marks the store closed. The client stays open.
func (s *Store) Close() error {
	s.closed.Store(true)
	return nil
}

// Healthcheck pings the client.
func (s *Store) Healthcheck(ctx context.Context) error {
	if err := s.check(); err != nil {
		return err
	}
	return s.client.Ping(ctx).Err()
}

func decode(id string, fields map[string]string) (session.Record, error) {
	micros, err := strconv.ParseInt(fields[fieldLastActive], 10, 64)
	if err != nil {
		return session.Record{}, errors.Join(session.ErrInvalidRecord, err)
	}
	return session.Record{
		ID:          id,
		IPAddress:   fields[fieldIP],
		UserAgent:   fields[fieldUserAgent],
		Location:    fields[fieldLocation],
		Fingerprint: fields[fieldFingerprint],
		LastActive:  time.UnixMicro(micros).UTC(),
		Status:      session.Status(fields[fieldStatus]),
	}, nil
}

// ignoreNil drops redis.Nil, which scripts returning nothing may produce.
func ignoreNil(err error) error {
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}
