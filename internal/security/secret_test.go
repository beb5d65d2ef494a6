package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNewProjectSecret(t *testing.T) {
	a, err := NewProjectSecret()
	require.NoError(t, err)
	b, err := NewProjectSecret()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, SecretPrefix))
	assert.Len(t, a, len(SecretPrefix)+43)
}

func TestHasher_SecretRoundTrip(t *testing.T) {
	h := NewHasher(4)
	secret, err := NewProjectSecret()
	require.NoError(t, err)
	hash, err := h.Hash([]byte(secret))
	require.NoError(t, err)

	assert.NotContains(t, hash, secret)
	assert.NoError(t, h.Compare(hash, []byte(secret)))
	assert.ErrorIs(t, h.Compare(hash, []byte(secret+"x")), ErrSecretMismatch)

	err = h.Compare("not-a-bcrypt-hash", []byte(secret))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSecretMismatch)
}

func TestNewHasher_Cost(t *testing.T) {
	testCases := []struct {
		in, want int
	}{
		{0, bcrypt.DefaultCost},
		{-1, bcrypt.DefaultCost},
		{2, bcrypt.MinCost},
		{12, 12},
		{99, bcrypt.MaxCost},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, NewHasher(tc.in).Cost, "cost %d", tc.in)
	}
}
