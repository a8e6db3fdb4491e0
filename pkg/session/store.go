package session

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrymomot/apigate/pkg/cache"
)

// Store persists sessions by token.
type Store interface {
	// Create persists a new session.
	Create(ctx context.Context, s *Session) error
	// Get returns ErrNotFound or ErrExpired when the token has no live session.
	Get(ctx context.Context, token string) (*Session, error)
	// Update saves changes to an existing session. oldToken is the token the
	// session was stored under, which differs from s.Token after rotation.
	Update(ctx context.Context, oldToken string, s *Session) error
	// Delete removes the session stored under token.
	Delete(ctx context.Context, token string) error
}

// CacheStore keeps sessions in a cache.Cache (memory or Redis).
// Entries expire with their session.
type CacheStore struct {
	cache cache.Cache[Session]
}

// NewCacheStore creates a Store over c.
func NewCacheStore(c cache.Cache[Session]) *CacheStore {
	return &CacheStore{cache: c}
}

// Create implements Store.
func (s *CacheStore) Create(ctx context.Context, sess *Session) error {
	return s.put(ctx, sess)
}

// Get implements Store.
func (s *CacheStore) Get(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	sess, err := s.cache.Get(ctx, token)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if sess.IsExpired() {
		_ = s.cache.Delete(ctx, token)
		return nil, ErrExpired
	}
	return &sess, nil
}

// Update implements Store.
func (s *CacheStore) Update(ctx context.Context, oldToken string, sess *Session) error {
	if oldToken != "" && oldToken != sess.Token {
		if err := s.cache.Delete(ctx, oldToken); err != nil {
			return err
		}
	}
	return s.put(ctx, sess)
}

// Delete implements Store.
func (s *CacheStore) Delete(ctx context.Context, token string) error {
	return s.cache.Delete(ctx, token)
}

func (s *CacheStore) put(ctx context.Context, sess *Session) error {
	if sess.Token == "" {
		return ErrInvalidToken
	}
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return ErrExpired
	}
	if err := s.cache.Set(ctx, sess.Token, *sess, ttl); err != nil {
		return err
	}
	sess.ClearNew()
	sess.ClearDirty()
	return nil
}
