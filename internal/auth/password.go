package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var ErrWeakPassword = errors.New("password must be at least 4 characters")

// ValidateGroupPassword checks the minimum requirement for a group
// password. Group passwords gate joining only, so the bar is lower than an
// account credential's would be.
func ValidateGroupPassword(password string) error {
	if len(password) < 4 {
		return ErrWeakPassword
	}
	return nil
}

// HashGroupPassword hashes a group password with bcrypt.
func HashGroupPassword(password string) (string, error) {
	if err := ValidateGroupPassword(password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyGroupPassword reports whether password matches the stored hash.
func VerifyGroupPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
