package token

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVerificationCode_FixedWidth(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := NewVerificationCode(rand.Reader, 6)
		require.NoError(t, err)
		assert.Len(t, code, 6)
		assert.NotEqual(t, byte('0'), code[0], "code must not have a leading zero")
	}
}

func TestNewSecret_Unique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		s := NewSecret()
		assert.False(t, seen[s])
		seen[s] = true
	}
}

func TestNewRefreshToken_Length(t *testing.T) {
	tok, err := NewRefreshToken()
	require.NoError(t, err)
	assert.Len(t, tok, 64)
}
