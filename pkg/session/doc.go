// Package session models server-side sessions and stores them in a cache.
//
// Sessions are keyed by their cookie token. An authenticated session carries
// the identity id it was bound to; anonymous sessions leave it empty.
//
//	store := session.NewCacheStore(cache.NewRedis[session.Session](client, "sessions", 0))
package session
