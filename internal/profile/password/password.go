// Package password hashes and verifies officer passwords with bcrypt.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	dErrors "amlguard/pkg/domain-errors"
)

// Cost is the bcrypt work factor for new hashes.
const Cost = 12

// Hash creates a bcrypt hash of the provided password.
func Hash(plain string) (string, error) {
	if plain == "" {
		return "", dErrors.New(dErrors.CodeValidation, "password cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), Cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeValidation, "password is too long")
		}
		return "", fmt.Errorf("could not hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify checks a plaintext password against a bcrypt hash. A mismatch is a
// validation error so the caller can report it as a bad current password.
func Verify(plain, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return dErrors.New(dErrors.CodeValidation, "current password is incorrect")
		}
		return fmt.Errorf("could not verify password: %w", err)
	}
	return nil
}

// Bcrypt adapts Hash and Verify to the profile service's hasher port.
type Bcrypt struct{}

func (Bcrypt) Hash(plain string) (string, error) { return Hash(plain) }

func (Bcrypt) Verify(plain, hash string) error { return Verify(plain, hash) }
