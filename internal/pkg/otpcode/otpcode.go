package otpcode

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// New generates a random numeric code of the given length. The first digit is
// never zero, so the code always prints at its full length. Codes are drawn
// from crypto/rand and carry no relation to previously issued codes.
func New(length int) (string, error) {
	if length < 1 {
		return "", fmt.Errorf("code length must be positive, got %d", length)
	}
	low := pow10(length - 1)
	span := new(big.Int).Sub(pow10(length), low) // [10^(n-1), 10^n)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", fmt.Errorf("generate otp code: %w", err)
	}
	return new(big.Int).Add(n, low).String(), nil
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
