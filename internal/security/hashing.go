package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrSecretMismatch is returned by Compare when the secret does not match the stored hash.
var ErrSecretMismatch = errors.New("secret does not match")

// Hasher stores project secrets as bcrypt hashes. Plaintext secrets are never logged or persisted.
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher. A non-positive cost means bcrypt.DefaultCost; others are clamped
// to bcrypt's accepted range.
func NewHasher(cost int) *Hasher {
	switch {
	case cost <= 0:
		cost = bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &Hasher{Cost: cost}
}

// Hash returns the bcrypt hash of secret.
func (h *Hasher) Hash(secret []byte) (string, error) {
	b, err := bcrypt.GenerateFromPassword(secret, h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare checks secret against hash in constant time. A wrong secret yields ErrSecretMismatch;
// a malformed hash yields bcrypt's error.
func (h *Hasher) Compare(hash string, secret []byte) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), secret)
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrSecretMismatch
	}
	return err
}
