package hash

import (
	"fmt"

	"github.com/contactbook-api/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// Secret one-way hashes a password or OTP code with bcrypt at the default
// cost (10 rounds). Each call salts independently, so hashing the same secret
// for two different records never produces related output.
func Secret(secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("secret must not be empty: %w", domain.ErrBadRequest)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Verify reports whether secret matches the bcrypt hash. bcrypt's comparison
// is constant-time over the digest; any mismatch or malformed hash yields false.
func Verify(secret, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(secret)) == nil
}
