package tokenhash_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/apigate/pkg/tokenhash"
)

// cheap keeps argon2id fast in tests.
func cheap(t *testing.T, opts ...tokenhash.Option) *tokenhash.Hasher {
	t.Helper()

	base := []tokenhash.Option{
		tokenhash.WithArgon2Params(1, 8*1024, 1),
		tokenhash.WithPBKDF2Iterations(1000),
	}
	h, err := tokenhash.New(append(base, opts...)...)
	require.NoError(t, err)
	return h
}

func TestHasher_Hash(t *testing.T) {
	t.Parallel()

	h := cheap(t)

	t.Run("deterministic per algorithm", func(t *testing.T) {
		t.Parallel()

		for _, alg := range []string{tokenhash.Argon2id, tokenhash.PBKDF2SHA256} {
			a, err := h.Hash("secret", "salt", alg)
			require.NoError(t, err, alg)
			b, err := h.Hash("secret", "salt", alg)
			require.NoError(t, err, alg)
			require.Equal(t, a, b, alg)

			other, err := h.Hash("secret", "pepper", alg)
			require.NoError(t, err, alg)
			require.NotEqual(t, a, other, alg)
		}
	})

	t.Run("algorithms differ", func(t *testing.T) {
		t.Parallel()

		a, err := h.Hash("secret", "salt", tokenhash.Argon2id)
		require.NoError(t, err)
		p, err := h.Hash("secret", "salt", tokenhash.PBKDF2SHA256)
		require.NoError(t, err)
		require.NotEqual(t, a, p)
	})

	t.Run("empty algorithm uses default", func(t *testing.T) {
		t.Parallel()

		def, err := h.Hash("secret", "salt", "")
		require.NoError(t, err)
		a, err := h.Hash("secret", "salt", tokenhash.Argon2id)
		require.NoError(t, err)
		require.Equal(t, a, def)
	})

	t.Run("unknown algorithm", func(t *testing.T) {
		t.Parallel()

		_, err := h.Hash("secret", "salt", "md5")
		require.ErrorIs(t, err, tokenhash.ErrUnknownAlgorithm)
	})
}

func TestHasher_Issue(t *testing.T) {
	t.Parallel()

	h := cheap(t, tokenhash.WithAlgorithm(tokenhash.PBKDF2SHA256))

	issued, err := h.Issue("42")
	require.NoError(t, err)
	require.Equal(t, tokenhash.PBKDF2SHA256, issued.Algorithm)

	id, secret, ok := strings.Cut(issued.Token, ":")
	require.True(t, ok)
	require.Equal(t, "42", id)
	require.NotContains(t, secret, ":")

	hash, err := h.Hash(secret, issued.Salt, issued.Algorithm)
	require.NoError(t, err)
	require.Equal(t, issued.Hash, hash)

	again, err := h.Issue("42")
	require.NoError(t, err)
	require.NotEqual(t, issued.Token, again.Token)
	require.NotEqual(t, issued.Salt, again.Salt)

	_, err = h.Issue("")
	require.ErrorIs(t, err, tokenhash.ErrEmptyIdentity)
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := tokenhash.New(tokenhash.WithAlgorithm("sha1"))
	require.ErrorIs(t, err, tokenhash.ErrUnknownAlgorithm)

	_, err = tokenhash.New(tokenhash.WithPBKDF2Iterations(0))
	require.ErrorIs(t, err, tokenhash.ErrInvalidParams)

	h, err := tokenhash.New()
	require.NoError(t, err)
	require.Equal(t, tokenhash.Argon2id, h.Algorithm())
}
