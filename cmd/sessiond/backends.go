package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/dmitrymomot/sessiontrack/pkg/config"
	"github.com/dmitrymomot/sessiontrack/pkg/httpserver"
	"github.com/dmitrymomot/sessiontrack/pkg/logger"
	"github.com/dmitrymomot/sessiontrack/pkg/mongo"
	"github.com/dmitrymomot/sessiontrack/pkg/pg"
	"github.com/dmitrymomot/sessiontrack/pkg/redis"
	"github.com/dmitrymomot/sessiontrack/pkg/session"
	"github.com/dmitrymomot/sessiontrack/pkg/session/mongostore"
	"github.com/dmitrymomot/sessiontrack/pkg/session/pgstore"
	"github.com/dmitrymomot/sessiontrack/pkg/session/redisstore"
	"github.com/dmitrymomot/sessiontrack/svc/item"
)

// backends connects each database at most once and closes whatever was
// opened.
type backends struct {
	log *slog.Logger

	pg      *pgxpool.Pool
	redis   *goredis.Client
	mongo   *mongodriver.Client
	mongoDB string

	closers []func()
	once    sync.Once
}

func (b *backends) postgres(ctx context.Context) (*pgxpool.Pool, error) {
	if b.pg != nil {
		return b.pg, nil
	}
	var cfg pg.Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	pool, err := pg.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	b.pg = pool
	return pool, nil
}

func (b *backends) redisClient(ctx context.Context) (*goredis.Client, error) {
	if b.redis != nil {
		return b.redis, nil
	}
	var cfg redis.Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	client, err := redis.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	b.redis = client
	return client, nil
}

func (b *backends) mongoCollection(ctx context.Context, name string) (*mongodriver.Collection, error) {
	if b.mongo == nil {
		var cfg mongo.Config
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		client, err := mongo.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		b.mongo = client
		b.mongoDB = cfg.Database
	}
	return b.mongo.Database(b.mongoDB).Collection(name), nil
}

func (b *backends) onClose(fn func()) {
	b.closers = append(b.closers, fn)
}

// checks returns a readiness check per connected backend, plus one for the
// session store when it can check itself.
func (b *backends) checks(store session.Store) map[string]httpserver.Check {
	checks := map[string]httpserver.Check{}
	if hc, ok := store.(interface{ Healthcheck(context.Context) error }); ok {
		checks["session_store"] = hc.Healthcheck
	}
	if b.pg != nil {
		checks["postgres"] = pg.Healthcheck(b.pg)
	}
	if b.redis != nil {
		checks["redis"] = redis.Healthcheck(b.redis)
	}
	if b.mongo != nil {
		checks["mongo"] = mongo.Healthcheck(b.mongo)
	}
	return checks
}

func (b *backends) close() {
	b.once.Do(func() {
		for _, fn := range b.closers {
			fn()
		}
		if b.pg != nil {
			b.pg.Close()
		}
		if b.redis != nil {
			if err := b.redis.Close(); err != nil {
				b.log.Error("redis close failed", logger.Error(err))
			}
		}
		if b.mongo != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := b.mongo.Disconnect(ctx); err != nil {
				b.log.Error("mongo disconnect failed", logger.Error(err))
			}
		}
	})
}

func openSessionStore(ctx context.Context, kind string, b *backends) (session.Store, error) {
	switch kind {
	case "memory", "":
		return session.NewMemoryStore(), nil
	case "postgres":
		pool, err := b.postgres(ctx)
		if err != nil {
			return nil, err
		}
		if err := pgstore.Migrate(ctx, pool, b.log); err != nil {
			return nil, err
		}
		return pgstore.New(pool), nil
	case "redis":
		client, err := b.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		return redisstore.New(client, redisstore.WithPrefix("sessiond:")), nil
	case "mongo":
		coll, err := b.mongoCollection(ctx, mongostore.DefaultCollection)
		if err != nil {
			return nil, err
		}
		store := mongostore.New(coll)
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown SESSION_STORE %q", kind)
	}
}

func openItemStore(ctx context.Context, kind string, b *backends) (item.Store, error) {
	switch kind {
	case "memory", "":
		return item.NewMemoryStore(), nil
	case "postgres":
		pool, err := b.postgres(ctx)
		if err != nil {
			return nil, err
		}
		if err := item.Migrate(ctx, pool, b.log); err != nil {
			return nil, err
		}
		return item.NewPGStore(pool), nil
	default:
		return nil, fmt.Errorf("unknown ITEM_STORE %q", kind)
	}
}
