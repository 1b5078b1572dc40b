// Package pg opens PostgreSQL connection pools with pgx/v5 and applies goose
// migrations embedded in the packages that own the tables.
//
// Connect retries until the database answers a ping or the attempts run out:
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, pgstore.Migrations, "migrations", pg.WithTable("session_migrations")); err != nil {
//		return err
//	}
//
// Error helpers classify *pgconn.PgError values so stores can map unique
// violations to their own sentinel errors.
package pg
