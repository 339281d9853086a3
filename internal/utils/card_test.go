package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestGenerateCardNumber(t *testing.T) {
	number, err := GenerateCardNumber("", 16)
	require.NoError(t, err)
	assert.Len(t, number, 16)
	for _, r := range number {
		assert.True(t, r >= '0' && r <= '9', "card number must be numeric, got %q", number)
	}
}

func TestGenerateCardNumberWithPrefix(t *testing.T) {
	number, err := GenerateCardNumber("4000", 16)
	require.NoError(t, err)
	assert.Len(t, number, 16)
	assert.Equal(t, "4000", number[:4])
}

func TestGenerateCardNumberInvalidLength(t *testing.T) {
	_, err := GenerateCardNumber("400000", 4)
	assert.Error(t, err)

	_, err = GenerateCardNumber("", 20)
	assert.Error(t, err)
}

func TestValidThru(t *testing.T) {
	issued := time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, "03/29", ValidThru(issued))

	// Single-digit months are zero padded
	issued = time.Date(2023, time.January, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "01/28", ValidThru(issued))

	issued = time.Date(2024, time.December, 31, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, "12/29", ValidThru(issued))
}

func TestGenerateSecurityCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateSecurityCode()
		require.NoError(t, err)
		require.Len(t, code, 3)
		assert.GreaterOrEqual(t, code, "100")
		assert.LessOrEqual(t, code, "999")
	}
}

func TestHashPIN(t *testing.T) {
	hash, err := HashPIN("1234", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "1234", hash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("1234")))
	assert.Error(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("4321")))
}
