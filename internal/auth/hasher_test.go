package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ayush/useradmin/internal/auth"
)

func TestBcryptHasher_Hash(t *testing.T) {
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)

	t.Run("produces bcrypt hash", func(t *testing.T) {
		hash, err := hasher.Hash("password123")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$2a$"))
	})

	t.Run("same password produces different hashes (salt)", func(t *testing.T) {
		hash1, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		hash2, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		assert.NotEqual(t, hash1, hash2)
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := hasher.Hash("")
		assert.ErrorIs(t, err, auth.ErrEmptyPassword)
	})

	t.Run("passwords over 72 bytes hash", func(t *testing.T) {
		hash, err := hasher.Hash(strings.Repeat("x", 80))
		require.NoError(t, err)
		assert.NotEmpty(t, hash)
	})
}

func TestBcryptHasher_LongPasswords(t *testing.T) {
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)

	long := strings.Repeat("p", 80)
	hash, err := hasher.Hash(long)
	require.NoError(t, err)

	ok, err := hasher.Verify(long, hash)
	require.NoError(t, err)
	assert.True(t, ok)

	// Differences past byte 72 still matter.
	ok, err = hasher.Verify(strings.Repeat("p", 79)+"q", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = hasher.Verify(strings.Repeat("p", 72), hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBcryptHasher_Verify(t *testing.T) {
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)

	passwords := []string{"password1", "correct horse battery staple", "日本語のパスワード", "        "}
	for _, pw := range passwords {
		t.Run("round trip "+pw, func(t *testing.T) {
			hash, err := hasher.Hash(pw)
			require.NoError(t, err)

			ok, err := hasher.Verify(pw, hash)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = hasher.Verify(pw+"x", hash)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}

	t.Run("malformed hash returns error", func(t *testing.T) {
		ok, err := hasher.Verify("password", "not-a-valid-hash")
		assert.Error(t, err)
		assert.False(t, ok)
	})
}

func TestNewBcryptHasher_ClampsCost(t *testing.T) {
	hasher := auth.NewBcryptHasher(0)
	hash, err := hasher.Hash("password123")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, auth.DefaultBcryptCost, cost)
}
