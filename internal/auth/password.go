package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost keeps a bcrypt comparison in the tens of milliseconds on current hardware.
const DefaultCost = bcrypt.DefaultCost

// Hasher hashes and verifies passwords with bcrypt at a fixed cost.
// bcrypt output embeds its salt and cost, so Verify needs only the stored hash.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher using cost, which must be a valid bcrypt cost.
func NewHasher(cost int) (*Hasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidCost, cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &Hasher{cost: cost}, nil
}

// Cost returns the configured work factor.
func (h *Hasher) Cost() int { return h.cost }

// Hash returns the bcrypt hash of plaintext.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", &ValidationError{Field: "password", Message: "must not be empty"}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", &ValidationError{Field: "password", Message: fmt.Sprintf("must be at most %d bytes", maxPasswordBytes)}
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches hash. A mismatch, an empty
// plaintext or an unparsable hash all yield false. bcrypt compares only the
// first 72 bytes, so anything longer can never have been hashed and is refused.
func (h *Hasher) Verify(plaintext, hash string) bool {
	if plaintext == "" || len(plaintext) > maxPasswordBytes {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
