package signature

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrymomot/apigate/pkg/cache"
)

// Default header names and skew.
const (
	DefaultSignatureHeader = "X-Signature"
	DefaultTimestampHeader = "X-Timestamp"
	DefaultMaxSkew         = 5 * time.Minute
)

// SecretSource returns the signing secret of an identity.
// It returns ErrNoSecret when the identity has none.
type SecretSource interface {
	SigningSecret(ctx context.Context, identityID string) (string, error)
}

// SecretFunc adapts a function to SecretSource.
type SecretFunc func(ctx context.Context, identityID string) (string, error)

// SigningSecret implements SecretSource.
func (f SecretFunc) SigningSecret(ctx context.Context, identityID string) (string, error) {
	return f(ctx, identityID)
}

// StaticSecrets is a fixed identity-to-secret map.
type StaticSecrets map[string]string

// SigningSecret implements SecretSource.
func (s StaticSecrets) SigningSecret(_ context.Context, identityID string) (string, error) {
	secret, ok := s[identityID]
	if !ok || secret == "" {
		return "", ErrNoSecret
	}
	return secret, nil
}

// Validator checks HMAC-SHA256 request signatures.
// It satisfies apigate.MessageValidator.
type Validator struct {
	secrets         SecretSource
	seen            cache.Cache[bool]
	now             func() time.Time
	signatureHeader string
	timestampHeader string
	maxSkew         time.Duration
	optional        bool
}

// Option configures a Validator.
type Option func(*Validator)

// WithMaxSkew sets how far the timestamp may drift from the server clock.
func WithMaxSkew(d time.Duration) Option {
	return func(v *Validator) {
		if d > 0 {
			v.maxSkew = d
		}
	}
}

// WithHeaders overrides the signature and timestamp header names.
func WithHeaders(signature, timestamp string) Option {
	return func(v *Validator) {
		v.signatureHeader = signature
		v.timestampHeader = timestamp
	}
}

// WithReplayCache rejects a signature seen before within the skew window.
// A Redis-backed cache shares the window across instances.
func WithReplayCache(c cache.Cache[bool]) Option {
	return func(v *Validator) {
		v.seen = c
	}
}

// WithOptionalSignature admits unsigned requests from identities that have
// no signing secret. Signed requests are still verified.
func WithOptionalSignature() Option {
	return func(v *Validator) {
		v.optional = true
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		v.now = now
	}
}

// New creates a Validator.
func New(secrets SecretSource, opts ...Option) *Validator {
	v := &Validator{
		secrets:         secrets,
		now:             time.Now,
		signatureHeader: DefaultSignatureHeader,
		timestampHeader: DefaultTimestampHeader,
		maxSkew:         DefaultMaxSkew,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateMessage verifies the signature of r for identityID.
func (v *Validator) ValidateMessage(ctx context.Context, r *http.Request, body []byte, identityID string) error {
	sig := r.Header.Get(v.signatureHeader)

	secret, err := v.secrets.SigningSecret(ctx, identityID)
	switch {
	case errors.Is(err, ErrNoSecret) && v.optional && sig == "":
		return nil
	case err != nil:
		return err
	}

	if sig == "" {
		return ErrMissingSignature
	}
	tsRaw := r.Header.Get(v.timestampHeader)
	if tsRaw == "" {
		return ErrMissingTimestamp
	}
	ts, err := strconv.ParseInt(tsRaw, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrMissingTimestamp, tsRaw)
	}
	if skew := v.now().Sub(time.Unix(ts, 0)).Abs(); skew > v.maxSkew {
		return ErrTimestampSkew
	}

	got, err := hex.DecodeString(sig)
	if err != nil {
		return ErrBadSignature
	}
	want := mac(secret, Canonical(r, body, tsRaw))
	if !hmac.Equal(got, want) {
		return ErrBadSignature
	}

	if v.seen != nil {
		key := identityID + ":" + strings.ToLower(sig)
		if _, err := v.seen.Get(ctx, key); err == nil {
			return ErrReplayed
		}
		if err := v.seen.Set(ctx, key, true, 2*v.maxSkew); err != nil {
			return fmt.Errorf("signature: remember signature: %w", err)
		}
	}
	return nil
}

// Canonical builds the signed string:
//
//	METHOD \n REQUEST-URI \n TIMESTAMP \n hex(sha256(body))
func Canonical(r *http.Request, body []byte, timestamp string) string {
	sum := sha256.Sum256(body)
	return strings.Join([]string{
		strings.ToUpper(r.Method),
		r.URL.RequestURI(),
		timestamp,
		hex.EncodeToString(sum[:]),
	}, "\n")
}

// Sign sets the signature and timestamp headers on r using the default
// header names. body must be the exact bytes sent.
func Sign(r *http.Request, body []byte, secret string, at time.Time) {
	ts := strconv.FormatInt(at.Unix(), 10)
	r.Header.Set(DefaultTimestampHeader, ts)
	r.Header.Set(DefaultSignatureHeader, hex.EncodeToString(mac(secret, Canonical(r, body, ts))))
}

func mac(secret, msg string) []byte {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(msg))
	return h.Sum(nil)
}
