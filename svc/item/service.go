package item

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/sessiontrack/pkg/logger"
)

type Service struct {
	store Store
	log   *slog.Logger
}

func NewService(store Store, log *slog.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{store: store, log: log.With(logger.Component("item"))}
}

// Create validates in and returns the stored item.
func (s *Service) Create(ctx context.Context, in Input) (Item, error) {
	if err := in.validate(); err != nil {
		return Item{}, err
	}
	id, err := s.store.Create(ctx, in)
	if err != nil {
		return Item{}, err
	}
	s.log.DebugContext(ctx, "item created", slog.Int64("item_id", id))
	return in.item(id), nil
}

func (s *Service) List(ctx context.Context) ([]Item, error) {
	return s.store.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (Item, error) {
	return s.store.Get(ctx, id)
}

// Update replaces name and description and returns the updated item.
func (s *Service) Update(ctx context.Context, id int64, in Input) (Item, error) {
	if err := in.validate(); err != nil {
		return Item{}, err
	}
	if err := s.store.Update(ctx, id, in); err != nil {
		return Item{}, err
	}
	return in.item(id), nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.Delete(ctx, id)
}
