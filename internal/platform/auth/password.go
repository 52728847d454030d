package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns a bcrypt hash of password.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares password with a stored hash. Stored hashes are
// bcrypt, or unsalted SHA-256 hex digests carried over from older user
// tables. needsRehash is true when the match was against a legacy digest.
func CheckPassword(hash, password string) (ok, needsRehash bool) {
	if IsLegacyHash(hash) {
		sum := sha256.Sum256([]byte(password))
		digest := hex.EncodeToString(sum[:])
		return subtle.ConstantTimeCompare([]byte(digest), []byte(strings.ToLower(hash))) == 1, true
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err != nil {
		return false, false
	}
	return true, false
}

// IsLegacyHash reports whether hash is a 64 character hex SHA-256 digest.
func IsLegacyHash(hash string) bool {
	if len(hash) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(hash)
	return err == nil
}

// ValidatePassword enforces the minimum password policy for new passwords.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	if len(password) > 72 {
		return errors.New("password must be at most 72 bytes")
	}
	return nil
}
