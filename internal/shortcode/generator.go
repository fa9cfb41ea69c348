// Package shortcode generates random short codes and validates user-chosen ones.
package shortcode

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"

	customerrors "github.com/linkgate/urlshortener/internal/errors"
)

// charset is the URL-safe alphabet: letters of both cases, digits, '_' and '-'.
// 64^6 gives roughly 68 billion combinations for the default 6-character code.
const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"

// DefaultLength is the length of generated codes unless configured otherwise.
const DefaultLength = 6

// Custom code bounds.
const (
	MinCustomLength = 3
	MaxCustomLength = 20
)

var customCodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Generator produces random codes. It does not guarantee global uniqueness;
// the link store's unique constraint does.
type Generator interface {
	Generate() (string, error)
}

// RandomGenerator draws codes from crypto/rand.
type RandomGenerator struct {
	length int
}

// NewGenerator creates a generator for codes of the given length.
// A non-positive length selects DefaultLength.
func NewGenerator(length int) *RandomGenerator {
	if length <= 0 {
		length = DefaultLength
	}
	return &RandomGenerator{length: length}
}

// Generate returns a new random code.
func (g *RandomGenerator) Generate() (string, error) {
	code := make([]byte, g.length)
	alphabetLen := big.NewInt(int64(len(charset)))

	for i := range code {
		num, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

// ValidateCustomCode checks a caller-supplied code before any store interaction.
func ValidateCustomCode(code string) error {
	if len(code) < MinCustomLength || len(code) > MaxCustomLength || !customCodePattern.MatchString(code) {
		return customerrors.ErrInvalidShortCode
	}
	return nil
}
