package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBcryptHasher_GenerateSalt(t *testing.T) {
	h := NewBcryptHasher(10)

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		salt, err := h.GenerateSalt()
		require.NoError(t, err)
		assert.Regexp(t, `^[0-9a-f]{64}$`, salt)
		assert.False(t, seen[salt], "salts must not repeat")
		seen[salt] = true
	}
}

func TestBcryptHasher_RoundTrip(t *testing.T) {
	h := NewBcryptHasher(10)
	salt, err := h.GenerateSalt()
	require.NoError(t, err)

	// Longer than bcrypt's 72-byte input limit; the sha256 pre-hash keeps the
	// whole password significant.
	password := "gift-for-casey-2025: a passphrase well past seventy-two bytes of input material"

	hash, err := h.Hash(salt, password)
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	t.Run("correct password", func(t *testing.T) {
		require.NoError(t, h.Compare(hash, salt, password))
	})

	t.Run("wrong password", func(t *testing.T) {
		assert.Error(t, h.Compare(hash, salt, "gift-for-casey-2024"))
	})

	t.Run("wrong salt", func(t *testing.T) {
		other, err := h.GenerateSalt()
		require.NoError(t, err)
		assert.Error(t, h.Compare(hash, other, password))
	})
}
