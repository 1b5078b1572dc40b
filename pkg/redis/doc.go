// Package redis connects go-redis clients with startup retries and exposes a
// readiness check.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
package redis
