package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndVerify(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash, "hash must not be the plaintext")

	ok, err := h.Verify("secret123", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	for _, other := range []string{"", "secret12", "secret1234", "SECRET123", "wrong"} {
		ok, err := h.Verify(other, hash)
		require.NoError(t, err)
		assert.False(t, ok, "password %q must not verify", other)
	}
}

func TestHasher_Salted(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	h1, err := h.Hash("secret123")
	require.NoError(t, err)
	h2, err := h.Hash("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2, "same input must produce different salted hashes")
}

func TestHasher_Cost(t *testing.T) {
	hash, err := NewHasher(5).Hash("pw")
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, 5, cost)

	assert.Equal(t, bcrypt.DefaultCost, NewHasher(0).cost, "out of range cost falls back to default")
}

func TestHasher_MalformedHash(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	ok, err := h.Verify("secret123", "not-a-bcrypt-hash")
	assert.False(t, ok)
	assert.Error(t, err, "malformed stored hash is an internal error, not a mismatch")
}

func TestHasher_RefreshToken(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	prefix := strings.Repeat("x", 80)
	tokenA := prefix + ".a"
	tokenB := prefix + ".b"

	hash, err := h.HashRefreshToken(tokenA)
	require.NoError(t, err)

	ok, err := h.VerifyRefreshToken(tokenA, hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.VerifyRefreshToken(tokenB, hash)
	require.NoError(t, err)
	assert.False(t, ok, "tokens sharing a long prefix must not match each other's hash")
}
