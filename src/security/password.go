// Package security handles password hashing for dashboard operators.
//
// Historical rows store bare hex SHA-256 digests. New and changed passwords
// are hashed with bcrypt; verification accepts both forms so existing rows
// keep working without a migration.
package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns a bcrypt hash for storage in users.password_hash.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyPassword reports whether password matches the stored hash. Hashes
// with a bcrypt prefix are compared with bcrypt; anything else is treated as
// a legacy hex SHA-256 digest.
func VerifyPassword(password, stored string) bool {
	if strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	}
	return verifyLegacy(password, stored)
}

func verifyLegacy(password, storedHex string) bool {
	sum := sha256.Sum256([]byte(password))
	digest := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(digest), []byte(strings.ToLower(storedHex))) == 1
}

// LegacyHash returns the hex SHA-256 digest the original schema stored.
// Kept for seeding fixtures that exercise the legacy path.
func LegacyHash(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}
