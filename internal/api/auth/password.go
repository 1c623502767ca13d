package auth

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost matches the cost factor every stored hash was written with.
const bcryptCost = 10

var bcryptPrefixes = []string{"$2a$", "$2b$", "$2y$"}

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether plain matches the stored bcrypt hash.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// IsHashed reports whether the value already looks like a bcrypt hash.
func IsHashed(s string) bool {
	for _, p := range bcryptPrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// EnsureHashed hashes the value unless it is already a bcrypt hash. Every
// write path goes through this so repeated saves never double-hash a
// password field.
func EnsureHashed(s string) (string, error) {
	if IsHashed(s) {
		return s, nil
	}
	return HashPassword(s)
}
