package internal

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dmitrymomot/apigate/pkg/logger"
)

// Identity is an authenticated caller. A request has at most one.
type Identity interface {
	IdentityID() string
}

// identityHolderKey is the context key of the request-scoped identity holder.
type identityHolderKey struct{}

// identityHolder stores the current identity of exactly one request.
type identityHolder struct {
	identity Identity
	mu       sync.RWMutex
}

// WithIdentityScope returns a context carrying a fresh, empty identity holder
// and a release func that clears it. Call release when the request ends.
func WithIdentityScope(ctx context.Context) (context.Context, func()) {
	h := &identityHolder{}
	return context.WithValue(ctx, identityHolderKey{}, h), func() {
		h.set(nil)
	}
}

func holderFrom(ctx context.Context) *identityHolder {
	if ctx == nil {
		return nil
	}
	h, _ := ctx.Value(identityHolderKey{}).(*identityHolder)
	return h
}

func (h *identityHolder) set(id Identity) {
	h.mu.Lock()
	h.identity = id
	h.mu.Unlock()
}

func (h *identityHolder) get() Identity {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.identity
}

// CurrentIdentity returns the identity of the request, or nil when the caller
// is anonymous or ctx has no identity scope.
func CurrentIdentity(ctx context.Context) Identity {
	if h := holderFrom(ctx); h != nil {
		return h.get()
	}
	return nil
}

// LogIn makes id the current identity of the request.
// Returns false when ctx has no identity scope.
func LogIn(ctx context.Context, id Identity) bool {
	h := holderFrom(ctx)
	if h == nil {
		return false
	}
	h.set(id)
	return true
}

// LogOut clears the current identity of the request.
func LogOut(ctx context.Context) {
	if h := holderFrom(ctx); h != nil {
		h.set(nil)
	}
}

// IdentityExtractor returns a ContextExtractor for use with WithLogger.
// Adds "identity_id" to log entries of authenticated requests.
func IdentityExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id := CurrentIdentity(ctx); id != nil {
			return slog.String("identity_id", id.IdentityID()), true
		}
		return slog.Attr{}, false
	}
}
