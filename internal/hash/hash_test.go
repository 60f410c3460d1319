package hash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	h, err := HashPassword("password123")
	require.NoError(t, err)
	require.NotEmpty(t, h)
	require.NotEqual(t, "password123", h)

	require.True(t, CheckPassword(h, "password123"))
	require.False(t, CheckPassword(h, "password124"))
	require.False(t, CheckPassword(h, ""))
}

func TestHashPasswordSalted(t *testing.T) {
	h1, err := HashPassword("password123")
	require.NoError(t, err)
	h2, err := HashPassword("password123")
	require.NoError(t, err)

	require.NotEqual(t, h1, h2)
	require.True(t, CheckPassword(h1, "password123"))
	require.True(t, CheckPassword(h2, "password123"))
}

func TestCheckPasswordRejectsPlaintextStoredValue(t *testing.T) {
	// A value that was never hashed must never verify.
	require.False(t, CheckPassword("password123", "password123"))
}
