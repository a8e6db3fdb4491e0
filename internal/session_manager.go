package internal

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/apigate/pkg/session"
)

// Default session configuration.
const (
	defaultSessionCookieName = "__sid"
	defaultSessionMaxAge     = 86400 * 30 // 30 days
)

// IdentityLoader resolves the identity a session is bound to.
// It returns (nil, nil) when the identity no longer exists.
type IdentityLoader interface {
	LoadIdentity(ctx context.Context, id string) (Identity, error)
}

// IdentityLoaderFunc adapts a function to IdentityLoader.
type IdentityLoaderFunc func(ctx context.Context, id string) (Identity, error)

// LoadIdentity implements IdentityLoader.
func (f IdentityLoaderFunc) LoadIdentity(ctx context.Context, id string) (Identity, error) {
	return f(ctx, id)
}

type sessionIDKey struct{}

// WithSessionID stores the id of the request's session in ctx.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, id)
}

// SessionIDFromContext returns the session id stored by WithSessionID, or "".
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey{}).(string)
	return id
}

// SessionManager loads cookie sessions and resolves their identities.
type SessionManager struct {
	store      session.Store
	loader     IdentityLoader
	logger     *slog.Logger
	cookieName string
	domain     string
	path       string
	maxAge     int
	sameSite   http.SameSite
	secure     bool
	httpOnly   bool
}

// SessionOption configures the SessionManager.
type SessionOption func(*SessionManager)

// NewSessionManager creates a SessionManager over store. loader resolves
// session identity ids into identities.
func NewSessionManager(store session.Store, loader IdentityLoader, opts ...SessionOption) *SessionManager {
	sm := &SessionManager{
		store:      store,
		loader:     loader,
		logger:     slog.New(slog.DiscardHandler),
		cookieName: defaultSessionCookieName,
		maxAge:     defaultSessionMaxAge,
		path:       "/",
		httpOnly:   true,
		sameSite:   http.SameSiteLaxMode,
	}

	for _, opt := range opts {
		opt(sm)
	}

	return sm
}

// WithSessionCookieName sets the session cookie name.
func WithSessionCookieName(name string) SessionOption {
	return func(sm *SessionManager) {
		if name != "" {
			sm.cookieName = name
		}
	}
}

// WithSessionMaxAge sets the session max age in seconds.
func WithSessionMaxAge(seconds int) SessionOption {
	return func(sm *SessionManager) {
		if seconds > 0 {
			sm.maxAge = seconds
		}
	}
}

// WithSessionDomain sets the session cookie domain.
func WithSessionDomain(domain string) SessionOption {
	return func(sm *SessionManager) {
		sm.domain = domain
	}
}

// WithSessionPath sets the session cookie path.
func WithSessionPath(path string) SessionOption {
	return func(sm *SessionManager) {
		if path != "" {
			sm.path = path
		}
	}
}

// WithSessionSecure sets the session cookie Secure flag.
func WithSessionSecure(secure bool) SessionOption {
	return func(sm *SessionManager) {
		sm.secure = secure
	}
}

// WithSessionSameSite sets the session cookie SameSite attribute.
func WithSessionSameSite(sameSite http.SameSite) SessionOption {
	return func(sm *SessionManager) {
		sm.sameSite = sameSite
	}
}

// SetLogger sets the logger for session events. Called by App after initialization.
func (sm *SessionManager) SetLogger(l *slog.Logger) {
	if l != nil {
		sm.logger = l
	}
}

// LoadSession loads the session named by the request cookie.
// Returns nil, nil if there is no cookie.
func (sm *SessionManager) LoadSession(ctx context.Context, r *http.Request) (*session.Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}
	return sm.store.Get(ctx, cookie.Value)
}

// Identify resolves the identity of the request's session.
// Missing, unknown, expired and anonymous sessions all yield a nil identity.
// The session is returned whenever one was loaded.
func (sm *SessionManager) Identify(ctx context.Context, r *http.Request) (Identity, *session.Session, error) {
	sess, err := sm.LoadSession(ctx, r)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrExpired) ||
			errors.Is(err, session.ErrInvalidToken) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	if sess == nil || !sess.IsAuthenticated() || sm.loader == nil {
		return nil, sess, nil
	}

	identity, err := sm.loader.LoadIdentity(ctx, sess.IdentityID)
	if err != nil {
		return nil, sess, err
	}
	if identity == nil {
		sm.logger.WarnContext(ctx, "session identity no longer exists",
			slog.String("session_id", sess.ID),
			slog.String("identity_id", sess.IdentityID),
		)
	}
	return identity, sess, nil
}

// CreateSession persists a new session bound to identity (nil for anonymous).
func (sm *SessionManager) CreateSession(ctx context.Context, identity Identity) (*session.Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	sess := session.New(uuid.NewString(), token, time.Now().Add(time.Duration(sm.maxAge)*time.Second))
	if identity != nil {
		sess.Authenticate(identity.IdentityID())
	}

	if err := sm.store.Create(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// SaveSession writes the session cookie to the response.
func (sm *SessionManager) SaveSession(w http.ResponseWriter, sess *session.Session) {
	http.SetCookie(w, sm.cookie(sess.Token, sm.maxAge))
}

// RotateToken gives the session a fresh token. Call after authentication
// so a token planted before login is worthless afterwards.
func (sm *SessionManager) RotateToken(ctx context.Context, sess *session.Session) error {
	oldToken := sess.Token
	newToken, err := generateToken()
	if err != nil {
		return fmt.Errorf("generate session token: %w", err)
	}
	sess.Token = newToken
	sess.MarkDirty()

	if err := sm.store.Update(ctx, oldToken, sess); err != nil {
		sess.Token = oldToken
		return err
	}
	return nil
}

// DeleteSession removes the session from the store and clears the cookie.
func (sm *SessionManager) DeleteSession(ctx context.Context, w http.ResponseWriter, sess *session.Session) error {
	http.SetCookie(w, sm.cookie("", -1))
	if sess == nil {
		return nil
	}
	return sm.store.Delete(ctx, sess.Token)
}

// Store returns the underlying session store.
func (sm *SessionManager) Store() session.Store {
	return sm.store
}

func (sm *SessionManager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     sm.cookieName,
		Value:    value,
		Path:     sm.path,
		Domain:   sm.domain,
		MaxAge:   maxAge,
		Secure:   sm.secure,
		HttpOnly: sm.httpOnly,
		SameSite: sm.sameSite,
	}
}

// generateToken creates a cryptographically secure random token.
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
