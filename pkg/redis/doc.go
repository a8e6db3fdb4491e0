// Package redis opens go-redis clients from environment configuration and
// exposes health and shutdown hooks for them.
//
//	var cfg redis.Config
//	if err := env.Parse(&cfg); err != nil { ... }
//	client, err := redis.Open(ctx, cfg)
package redis
