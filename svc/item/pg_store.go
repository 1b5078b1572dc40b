package item

import (
	"context"
	"embed"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/sessiontrack/pkg/pg"
)

//go:embed migrations/*.sql
var Migrations embed.FS

const MigrationsTable = "item_migrations"

// PGStore keeps items in the items table.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// Migrate creates or upgrades the items table.
func Migrate(ctx context.Context, pool *pgxpool.Pool, log *slog.Logger) error {
	opts := []pg.MigrateOption{pg.WithTable(MigrationsTable)}
	if log != nil {
		opts = append(opts, pg.WithLogger(log))
	}
	return pg.Migrate(ctx, pool, Migrations, "migrations", opts...)
}

func (s *PGStore) Create(ctx context.Context, in Input) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO items (name, description) VALUES ($1, $2) RETURNING id`,
		in.Name, in.Description,
	).Scan(&id)
	if err != nil {
		return 0, errors.Join(ErrStorage, err)
	}
	return id, nil
}

func (s *PGStore) List(ctx context.Context) ([]Item, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, description FROM items ORDER BY id`)
	if err != nil {
		return nil, errors.Join(ErrStorage, err)
	}
	items, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Item])
	if err != nil {
		return nil, errors.Join(ErrStorage, err)
	}
	return items, nil
}

func (s *PGStore) Get(ctx context.Context, id int64) (Item, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, description FROM items WHERE id = $1`, id)
	if err != nil {
		return Item{}, errors.Join(ErrStorage, err)
	}
	it, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[Item])
	if pg.IsNotFoundError(err) {
		return Item{}, ErrNotFound
	}
	if err != nil {
		return Item{}, errors.Join(ErrStorage, err)
	}
	return it, nil
}

func (s *PGStore) Update(ctx context.Context, id int64, in Input) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE items SET name = $2, description = $3 WHERE id = $1`,
		id, in.Name, in.Description,
	)
	if err != nil {
		return errors.Join(ErrStorage, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return errors.Join(ErrStorage, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
