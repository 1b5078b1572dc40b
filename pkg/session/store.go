package session

import (
	"context"
	"time"
)

// Store persists session records. Implementations are safe for concurrent use
// and report failures wrapped with StorageError.
type Store interface {
	// Insert fails with ErrDuplicateSession if the id already exists.
	Insert(ctx context.Context, rec Record) error

	// Get returns nil, nil when no record matches.
	Get(ctx context.Context, id string) (*Record, error)

	// Touch moves last_active forward to at. Unknown ids and timestamps older
	// than the stored one are ignored without error.
	Touch(ctx context.Context, id string, at time.Time) error

	// Delete is idempotent.
	Delete(ctx context.Context, id string) error

	// List returns every record in no particular order.
	List(ctx context.Context) ([]Record, error)

	// Close releases the underlying handle. Later calls fail with ErrStoreClosed.
	Close() error
}

// StatusUpdater is implemented by stores that can retain closed sessions.
type StatusUpdater interface {
	SetStatus(ctx context.Context, id string, status Status) error
}

// InactiveDeleter is implemented by stores that can expire sessions in one
// round trip. The returned count is the number of records removed.
type InactiveDeleter interface {
	DeleteInactive(ctx context.Context, before time.Time) (int, error)
}

// validate is shared by the in-package stores.
func validate(rec Record) error {
	if rec.ID == "" || !rec.Status.Valid() || rec.LastActive.IsZero() {
		return ErrInvalidRecord
	}
	return nil
}

// Validate checks the fields every store requires before an insert.
func Validate(rec Record) error {
	if err := validate(rec); err != nil {
		return StorageError(err)
	}
	return nil
}
