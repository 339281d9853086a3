package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// GenerateCardNumber generates a numeric card number with the specified
// prefix and length. Uniqueness is not guaranteed; card identity is carried
// by the card id, the number is purely presentational.
func GenerateCardNumber(prefix string, length int) (string, error) {
	if length < len(prefix) || length > 19 {
		return "", fmt.Errorf("invalid card number length: %d", length)
	}

	digits := make([]byte, length-len(prefix))
	_, err := rand.Read(digits)
	if err != nil {
		return "", fmt.Errorf("failed to generate random digits: %w", err)
	}

	var builder strings.Builder
	builder.WriteString(prefix)
	for _, b := range digits {
		builder.WriteByte(b%10 + '0')
	}

	return builder.String(), nil
}

// ValidThru computes a card expiry date (MM/YY) five years after the given
// issuance time.
func ValidThru(issuedAt time.Time) string {
	expiry := issuedAt.AddDate(5, 0, 0)
	return fmt.Sprintf("%02d/%02d", expiry.Month(), expiry.Year()%100)
}

// GenerateSecurityCode generates a 3-digit security code in [100, 999].
func GenerateSecurityCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900))
	if err != nil {
		return "", fmt.Errorf("failed to generate security code: %w", err)
	}
	return fmt.Sprintf("%03d", n.Int64()+100), nil
}

// HashPIN hashes a card PIN with bcrypt at the given cost.
func HashPIN(pin string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash pin: %w", err)
	}
	return string(hash), nil
}
