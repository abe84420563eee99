package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt work factor (2^10 rounds).
const PasswordCost = 10

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

var ErrHashing = errors.New("password hashing failed")

// HashPassword hashes a plain text password with bcrypt.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), PasswordCost)

	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrHashing, err)
	}

	return string(hash), nil
}

// CheckPassword compares a bcrypt hash with a plaintext password in constant time.
// A mismatch is (false, nil); only a malformed hash produces an error.
func CheckPassword(hash, plain string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %w", ErrHashing, err)
	}
}

var (
	dummyOnce sync.Once
	dummyHash []byte
)

// CheckDummy spends the same bcrypt work as CheckPassword against a throwaway
// hash, so a lookup miss costs as much as a wrong password.
func CheckDummy(plain string) {
	dummyOnce.Do(func() {
		seed := make([]byte, 16)
		_, _ = rand.Read(seed)

		h, err := bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(seed)), PasswordCost)
		if err != nil {
			// cost is a constant, so this only fails on a broken rand source
			panic(fmt.Sprintf("security: dummy hash: %v", err))
		}
		dummyHash = h
	})

	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(plain))
}
