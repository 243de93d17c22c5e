package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct-horse-battery")
	require.NoError(t, err)
	require.NotEqual(t, "correct-horse-battery", hash)

	require.NoError(t, VerifyPassword(hash, "correct-horse-battery"))
	require.ErrorIs(t, VerifyPassword(hash, "wrong-password"), ErrPasswordMismatch)
}

func TestHashPassword_TooShort(t *testing.T) {
	_, err := HashPassword("short")
	require.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestIsPasswordValid(t *testing.T) {
	require.True(t, IsPasswordValid("12345678"))
	require.False(t, IsPasswordValid("1234567"))
}
