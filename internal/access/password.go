package access

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	customerrors "github.com/linkgate/urlshortener/internal/errors"
)

// HashPassword returns the bcrypt hash of a link password. Cost values outside
// bcrypt's range fall back to bcrypt.DefaultCost.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// ComparePassword checks plaintext against a stored hash in constant time.
func ComparePassword(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return customerrors.ErrInvalidPassword
	default:
		return fmt.Errorf("failed to compare password: %w", err)
	}
}
