package session

import "errors"

var (
	ErrStorage          = errors.New("session.storage_failed")
	ErrDuplicateSession = errors.New("session.duplicate_id")
	ErrStoreClosed      = errors.New("session.store_closed")
	ErrSessionNotFound  = errors.New("session.not_found")
	ErrStoreRequired    = errors.New("session.store_required")
	ErrManagerClosed    = errors.New("session.manager_closed")
	ErrInvalidRecord    = errors.New("session.invalid_record")
)

// StorageError marks err as a persistence failure. Store implementations
// return every failure through it so callers can test errors.Is(err, ErrStorage).
func StorageError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorage) {
		return err
	}
	return errors.Join(ErrStorage, err)
}
