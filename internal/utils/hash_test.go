package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ada@example.com", NormalizeEmail("  Ada@Example.COM "))
	assert.Equal(t, "ada@example.com", NormalizeEmail("ada@example.com"))
	assert.Equal(t, "", NormalizeEmail("   "))
}

func TestGenerateNumericCode(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := GenerateNumericCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		assert.GreaterOrEqual(t, code, "100000")
		assert.LessOrEqual(t, code, "999999")
	}
}

func TestHashTokenDeterministic(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
	assert.NotContains(t, HashToken("secret-token"), "secret-token")
}

func TestGenerateRandomTokenUnique(t *testing.T) {
	first, err := GenerateRandomToken(32)
	require.NoError(t, err)
	second, err := GenerateRandomToken(32)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.NotEmpty(t, first)
}

func TestGenerateReferralCode(t *testing.T) {
	code, err := GenerateReferralCode()
	require.NoError(t, err)
	assert.Len(t, code, 8)
	assert.Equal(t, strings.ToUpper(code), code)
}
