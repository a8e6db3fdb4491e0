// Package cache provides a generic Cache with in-memory and Redis backends.
//
// TTL semantics for Set:
//   - Positive duration: item expires after this duration
//   - Zero: use the cache's configured default TTL (1 hour by default)
//   - Negative: item never expires
//
// A [Loader] adds read-through loading with singleflight, so concurrent
// misses on one key run the loader once:
//
//	identities := cache.NewLoader(cache.NewMemory[Identity](cache.WithDefaultTTL(time.Minute)))
//	id, err := identities.GetOrSet(ctx, userID, func(ctx context.Context) (Identity, time.Duration, error) {
//	    ident, err := store.IdentityByID(ctx, userID)
//	    return ident, 0, err
//	})
//
// The Redis backend stores values as JSON under "{prefix}:{key}". The client
// lifecycle belongs to the caller; Close on a Redis cache does nothing.
package cache
