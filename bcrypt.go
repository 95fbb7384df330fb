package identity

import (
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword will generate a password hash
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost())
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password. Malformed hashes report a
// mismatch rather than a fault.
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrMismatchedHashAndPassword
	}
	return nil
}

// VerifyPassword reports whether the cleartext password matches the hash.
// Malformed hashes are reported as a mismatch, never as a fault.
func VerifyPassword(password, hash string) bool {
	return ComparePasswordAndHash(password, hash) == nil
}

// BcryptAuthenticator implements PasswordAuthenticator on the package's
// adaptive-cost bcrypt helpers.
type BcryptAuthenticator struct{}

// HashPassword satisfies the PasswordAuthenticator interface.
func (BcryptAuthenticator) HashPassword(password string) (string, error) {
	return HashPassword(password)
}

// ComparePasswordAndHash satisfies the PasswordAuthenticator interface.
func (BcryptAuthenticator) ComparePasswordAndHash(password, hash string) error {
	return ComparePasswordAndHash(password, hash)
}

var _ PasswordAuthenticator = BcryptAuthenticator{}

// RandomPasswordHash is a temporary password
func RandomPasswordHash() string {
	pwd := uuid.New()

	h, err := HashPassword(pwd.String())
	if err != nil {
		return RandomPasswordHash()
	}

	return h
}
