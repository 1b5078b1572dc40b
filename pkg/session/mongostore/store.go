// Package mongostore keeps session records in a MongoDB collection keyed by
// session id.
package mongostore

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/sessiontrack/pkg/session"
)

// DefaultCollection is the collection name cmd/sessiond uses.
const DefaultCollection = "sessions"

// document stores last_active as unix microseconds; BSON dates only keep
// milliseconds.
type document struct {
	ID          string `bson:"_id"`
	IPAddress   string `bson:"ip_address"`
	UserAgent   string `bson:"user_agent"`
	Location    string `bson:"location"`
	Fingerprint string `bson:"fingerprint"`
	LastActive  int64  `bson:"last_active"`
	Status      string `bson:"status"`
}

func toDocument(rec session.Record) document {
	return document{
		ID:          rec.ID,
		IPAddress:   rec.IPAddress,
		UserAgent:   rec.UserAgent,
		Location:    rec.Location,
		Fingerprint: rec.Fingerprint,
		LastActive:  rec.LastActive.UnixMicro(),
		Status:      string(rec.Status),
	}
}

func (d document) record() session.Record {
	return session.Record{
		ID:          d.ID,
		IPAddress:   d.IPAddress,
		UserAgent:   d.UserAgent,
		Location:    d.Location,
		Fingerprint: d.Fingerprint,
		LastActive:  time.UnixMicro(d.LastActive).UTC(),
		Status:      session.Status(d.Status),
	}
}

// Store implements session.Store, session.StatusUpdater and
// session.InactiveDeleter on a MongoDB collection. Ids are the _id.
type Store struct {
	coll   *mongo.Collection
	closed atomic.Bool
}

// New uses coll as is. Call EnsureIndexes once at startup.
func New(coll *mongo.Collection) *Store {
	return &Store{coll: coll}
}

// EnsureIndexes creates the last_active index used by DeleteInactive.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "last_active", Value: 1}},
		Options: options.Index().SetName("last_active_1"),
	})
	return session.StorageError(err)
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

	_, err := s.coll.InsertOne(ctx, toDocument(rec))
	if mongo.IsDuplicateKeyError(err) {
		return session.StorageError(errors.Join(session.ErrDuplicateSession, err))
	}
	return session.StorageError(err)
}

// Get returns nil, nil for an unknown id.
func (s *Store) Get(ctx context.Context, id string) (*session.Record, error) {
	if err := s.check(); err != nil {
		return nil, err
	}

	var doc document
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, session.StorageError(err)
	}
	rec := doc.record()
	return &rec, nil
}

// Touch only matches documents with an older last_active, so it never
// moves backwards.
func (s *Store) Touch(ctx context.Context, id string, at time.Time) error {
	if err := s.check(); err != nil {
		return err
	}
	micros := at.UnixMicro()
	_, err := s.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}, {Key: "last_active", Value: bson.D{{Key: "$lt", Value: micros}}}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "last_active", Value: micros}}}},
	)
	return session.StorageError(err)
}

func (s *Store) SetStatus(ctx context.Context, id string, status session.Status) error {
	if err := s.check(); err != nil {
		return err
	}
	if !status.Valid() {
		return session.StorageError(session.ErrInvalidRecord)
	}
	_, err := s.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "status", Value: string(status)}}}},
	)
	return session.StorageError(err)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.check(); err != nil {
		return err
	}
	_, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	return session.StorageError(err)
}

// DeleteInactive removes documents last active before the cutoff.
func (s *Store) DeleteInactive(ctx context.Context, before time.Time) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	res, err := s.coll.DeleteMany(ctx, bson.D{{Key: "last_active", Value: bson.D{{Key: "$lt", Value: before.UnixMicro()}}}})
	if err != nil {
		return 0, session.StorageError(err)
	}
	return int(res.DeletedCount), nil
}

func (s *Store) List(ctx context.Context) ([]session.Record, error) {
	if err := s.check(); err != nil {
		return nil, err
	}

	cur, err := s.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, session.StorageError(err)
	}
	var docs []document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, session.StorageError(err)
	}

	out := make([]session.Record, len(docs))
	for i, d := range docs {
		out[i] = d.record()
	}
	return out, nil
}

// Close marks the store closed. The client belongs to the caller.
func (s *Store) Close() error {
	s.closed.Store(true)
	return nil
}
