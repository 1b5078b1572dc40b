package pg

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type migrateOptions struct {
	table string
	log   *slog.Logger
}

type MigrateOption func(*migrateOptions)

// WithTable sets the goose version table. Each component keeps its own so
// their migration sequences do not collide.
func WithTable(name string) MigrateOption {
	return func(o *migrateOptions) { o.table = name }
}

func WithLogger(l *slog.Logger) MigrateOption {
	return func(o *migrateOptions) { o.log = l }
}

// goose keeps its dialect, table and filesystem in package globals.
var gooseMu sync.Mutex

// Migrate applies every pending migration found under dir in fsys.
func Migrate(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS, dir string, opts ...MigrateOption) error {
	o := migrateOptions{table: "schema_migrations", log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer func() {
		if err := db.Close(); err != nil {
			o.log.ErrorContext(ctx, "failed to close migration connection", slog.Any("error", err))
		}
	}()

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(fsys)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(gooseLogger{o.log.With(slog.String("migrations", o.table))})
	goose.SetTableName(o.table)

	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}
	if err := goose.UpContext(ctx, db, dir); err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}
	return nil
}

// gooseLogger routes goose output through slog.
type gooseLogger struct {
	log *slog.Logger
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.log.Error(fmt.Sprintf(format, v...))
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.log.Info(fmt.Sprintf(format, v...))
}
