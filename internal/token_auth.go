package internal

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

// DefaultTokenHeader carries "<identityId>:<secret>".
const DefaultTokenHeader = "X-Auth-Token"

// ErrCredentialNotFound is returned by credential stores for unknown identities.
var ErrCredentialNotFound = errors.New("credential not found")

// dummySalt feeds the hash derivation when there is no real credential,
// so unknown identities cost the same as wrong secrets.
const dummySalt = "apigate-dummy-salt-0000000000000"

// Credential is the stored token material of an identity.
type Credential struct {
	Identity  Identity
	Hash      string
	Salt      string
	Algorithm string
}

// CredentialStore loads credentials by identity id without access checks.
type CredentialStore interface {
	CredentialByID(ctx context.Context, id string) (Credential, error)
}

// Hasher derives the stored hash of a token secret.
// An empty algorithm selects the hasher's default.
type Hasher interface {
	Hash(secret, salt, algorithm string) (string, error)
}

// TokenAuthenticator resolves identities from "<identityId>:<secret>" tokens.
type TokenAuthenticator struct {
	store  CredentialStore
	hasher Hasher
	header string
}

// NewTokenAuthenticator creates a TokenAuthenticator reading header.
// An empty header means DefaultTokenHeader.
func NewTokenAuthenticator(store CredentialStore, hasher Hasher, header string) *TokenAuthenticator {
	if header == "" {
		header = DefaultTokenHeader
	}
	return &TokenAuthenticator{store: store, hasher: hasher, header: header}
}

// Header returns the name of the token header.
func (a *TokenAuthenticator) Header() string {
	return a.header
}

// AuthenticateRequest resolves the identity from the token header.
// A missing header yields (nil, nil).
func (a *TokenAuthenticator) AuthenticateRequest(ctx context.Context, r *http.Request) (Identity, error) {
	token := r.Header.Get(a.header)
	if token == "" {
		return nil, nil
	}
	return a.AuthenticateToken(ctx, token)
}

// AuthenticateToken verifies a token. Malformed tokens, unknown identities
// and wrong secrets all yield (nil, nil) after the same hashing work.
// Only store or hasher failures return an error.
func (a *TokenAuthenticator) AuthenticateToken(ctx context.Context, token string) (Identity, error) {
	id, secret, ok := strings.Cut(token, ":")
	if !ok || id == "" {
		a.burn(secret)
		return nil, nil
	}

	cred, err := a.store.CredentialByID(ctx, id)
	if err != nil {
		a.burn(secret)
		if errors.Is(err, ErrCredentialNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if cred.Identity == nil || cred.Hash == "" {
		a.burn(secret)
		return nil, nil
	}

	expected, err := a.hasher.Hash(secret, cred.Salt, cred.Algorithm)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(cred.Hash)) != 1 {
		return nil, nil
	}
	return cred.Identity, nil
}

// LogIn sets the request-scoped identity.
func (a *TokenAuthenticator) LogIn(ctx context.Context, identity Identity) bool {
	return LogIn(ctx, identity)
}

// LogOut clears the request-scoped identity.
func (a *TokenAuthenticator) LogOut(ctx context.Context) {
	LogOut(ctx)
}

func (a *TokenAuthenticator) burn(secret string) {
	_, _ = a.hasher.Hash(secret, dummySalt, "")
}
