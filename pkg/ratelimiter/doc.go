// Package ratelimiter is a token bucket limiter with in-memory and Redis
// backends and an HTTP middleware keyed by client IP.
//
//	b, err := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(), ratelimiter.Config{
//		Capacity:       20,
//		RefillRate:     1,
//		RefillInterval: 3 * time.Second,
//	})
//	r.With(ratelimiter.Middleware(b, ratelimiter.ByIP(), log)).Post("/sessions", create)
//
// A request is allowed while Result.Remaining is not negative.
package ratelimiter
