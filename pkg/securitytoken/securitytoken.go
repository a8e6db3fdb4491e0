package securitytoken

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// DefaultName is the request var carrying the security id.
const DefaultName = "SecurityID"

const minSecretLen = 32

// ErrWeakSecret is returned when the signing secret is shorter than 32 bytes.
var ErrWeakSecret = errors.New("securitytoken: secret must be at least 32 bytes")

// Issuer derives a security id for each session by signing the session id.
// Values are deterministic for a given secret and session, so nothing is stored.
type Issuer struct {
	name   string
	secret []byte
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithName overrides the request var name.
func WithName(name string) Option {
	return func(i *Issuer) {
		if name != "" {
			i.name = name
		}
	}
}

// New creates an Issuer signing with secret.
func New(secret []byte, opts ...Option) (*Issuer, error) {
	if len(secret) < minSecretLen {
		return nil, ErrWeakSecret
	}
	i := &Issuer{name: DefaultName, secret: append([]byte(nil), secret...)}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// NewRandom creates an Issuer with a random per-process secret.
// Issued values do not survive a restart.
func NewRandom(opts ...Option) (*Issuer, error) {
	secret := make([]byte, minSecretLen)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	return New(secret, opts...)
}

// Name returns the request var name.
func (i *Issuer) Name() string {
	return i.name
}

// Value returns the security id for sessionID.
func (i *Issuer) Value(sessionID string) string {
	return hex.EncodeToString(i.sign(sessionID))
}

// Check reports whether value was issued for sessionID.
// An empty session id never matches.
func (i *Issuer) Check(sessionID, value string) bool {
	if sessionID == "" || value == "" {
		return false
	}
	got, err := hex.DecodeString(value)
	if err != nil {
		return false
	}
	return hmac.Equal(got, i.sign(sessionID))
}

func (i *Issuer) sign(sessionID string) []byte {
	mac := hmac.New(sha256.New, i.secret)
	mac.Write([]byte(sessionID))
	return mac.Sum(nil)
}
