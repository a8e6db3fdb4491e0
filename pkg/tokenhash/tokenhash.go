package tokenhash

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
)

// Supported algorithms, stored next to each hash.
const (
	Argon2id     = "argon2id"
	PBKDF2SHA256 = "pbkdf2-sha256"
)

const (
	keyLen    = 32
	saltLen   = 16
	secretLen = 32
)

// Hasher derives token hashes. It satisfies apigate.Hasher.
// The zero value is not usable; call New.
type Hasher struct {
	algorithm   string
	argonTime   uint32
	argonMemory uint32
	argonLanes  uint8
	iterations  int
}

// Option configures a Hasher.
type Option func(*Hasher)

// WithAlgorithm sets the algorithm used for new hashes and for credentials
// stored without one.
func WithAlgorithm(alg string) Option {
	return func(h *Hasher) {
		h.algorithm = alg
	}
}

// WithArgon2Params sets the argon2id cost. memory is in KiB.
func WithArgon2Params(time, memory uint32, lanes uint8) Option {
	return func(h *Hasher) {
		h.argonTime = time
		h.argonMemory = memory
		h.argonLanes = lanes
	}
}

// WithPBKDF2Iterations sets the pbkdf2-sha256 iteration count.
func WithPBKDF2Iterations(n int) Option {
	return func(h *Hasher) {
		h.iterations = n
	}
}

// New creates a Hasher defaulting to argon2id with the RFC 9106 second
// recommended parameters (t=3, m=64MiB, p=4).
func New(opts ...Option) (*Hasher, error) {
	h := &Hasher{
		algorithm:   Argon2id,
		argonTime:   3,
		argonMemory: 64 * 1024,
		argonLanes:  4,
		iterations:  600_000,
	}
	for _, opt := range opts {
		opt(h)
	}

	switch h.algorithm {
	case Argon2id, PBKDF2SHA256:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, h.algorithm)
	}
	if h.argonTime == 0 || h.argonMemory == 0 || h.argonLanes == 0 || h.iterations <= 0 {
		return nil, ErrInvalidParams
	}
	return h, nil
}

// Algorithm returns the algorithm used for new hashes.
func (h *Hasher) Algorithm() string {
	return h.algorithm
}

// Hash derives the base64 hash of secret. An empty algorithm means the default.
func (h *Hasher) Hash(secret, salt, algorithm string) (string, error) {
	if algorithm == "" {
		algorithm = h.algorithm
	}

	var key []byte
	switch algorithm {
	case Argon2id:
		key = argon2.IDKey([]byte(secret), []byte(salt), h.argonTime, h.argonMemory, h.argonLanes, keyLen)
	case PBKDF2SHA256:
		key = pbkdf2.Key([]byte(secret), []byte(salt), h.iterations, keyLen, sha256.New)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
	}
	return base64.RawStdEncoding.EncodeToString(key), nil
}

// Issued is a freshly generated token. Token is shown to the client once;
// Hash, Salt and Algorithm are stored.
type Issued struct {
	Token     string
	Hash      string
	Salt      string
	Algorithm string
}

// Issue generates a new "<identityID>:<secret>" token for identityID.
func (h *Hasher) Issue(identityID string) (Issued, error) {
	if identityID == "" {
		return Issued{}, ErrEmptyIdentity
	}

	secret, err := NewSecret()
	if err != nil {
		return Issued{}, err
	}
	salt, err := NewSalt()
	if err != nil {
		return Issued{}, err
	}
	hash, err := h.Hash(secret, salt, h.algorithm)
	if err != nil {
		return Issued{}, err
	}

	return Issued{
		Token:     identityID + ":" + secret,
		Hash:      hash,
		Salt:      salt,
		Algorithm: h.algorithm,
	}, nil
}

// NewSalt returns a random base64 salt.
func NewSalt() (string, error) {
	return random(saltLen, base64.RawStdEncoding)
}

// NewSecret returns a random URL-safe secret without ':' characters.
func NewSecret() (string, error) {
	return random(secretLen, base64.RawURLEncoding)
}

func random(n int, enc *base64.Encoding) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("tokenhash: read random: %w", err)
	}
	return enc.EncodeToString(b), nil
}
