package security

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/MiguelGP111/micampofresco/internal/core/port"
)

// Supported password hashing algorithms.
const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"
)

// DefaultBcryptCost matches the cost factor used by existing account records.
const DefaultBcryptCost = 10

// BcryptHasher hashes passwords with bcrypt at a fixed cost.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a bcrypt hasher. Costs outside bcrypt's range fall back to DefaultBcryptCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &BcryptHasher{cost: cost}
}

// Algorithm implements port.PasswordHasher.
func (h *BcryptHasher) Algorithm() string {
	return AlgorithmBcrypt
}

// Hash implements port.PasswordHasher.
func (h *BcryptHasher) Hash(password string) (string, error) {
	sum, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: hash password: %w", err)
	}
	return string(sum), nil
}

// Verify implements port.PasswordHasher.
func (h *BcryptHasher) Verify(password, encoded string) (bool, error) {
	if password == "" || encoded == "" {
		return false, nil
	}

	err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("bcrypt: verify password: %w", err)
	}
}

// NeedsRehash reports whether encoded is not a bcrypt hash at the configured cost.
func (h *BcryptHasher) NeedsRehash(encoded string) bool {
	cost, err := bcrypt.Cost([]byte(encoded))
	if err != nil {
		return true
	}
	return cost != h.cost
}

// MultiHasher hashes with a primary algorithm and verifies any supported encoding.
type MultiHasher struct {
	primary port.PasswordHasher
	bcrypt  *BcryptHasher
	argon2  *Argon2Hasher
}

// NewPasswordHasher builds a MultiHasher whose primary algorithm is selected by name.
func NewPasswordHasher(algorithm string, bcryptCost int, argonCfg Argon2Config) (*MultiHasher, error) {
	argonHasher, err := NewArgon2Hasher(argonCfg)
	if err != nil {
		return nil, err
	}
	bcryptHasher := NewBcryptHasher(bcryptCost)

	h := &MultiHasher{bcrypt: bcryptHasher, argon2: argonHasher}
	switch strings.ToLower(strings.TrimSpace(algorithm)) {
	case "", AlgorithmBcrypt:
		h.primary = bcryptHasher
	case AlgorithmArgon2id:
		h.primary = argonHasher
	default:
		return nil, fmt.Errorf("unsupported password algorithm %q", algorithm)
	}
	return h, nil
}

// Algorithm implements port.PasswordHasher.
func (h *MultiHasher) Algorithm() string {
	return h.primary.Algorithm()
}

// Hash implements port.PasswordHasher.
func (h *MultiHasher) Hash(password string) (string, error) {
	return h.primary.Hash(password)
}

// Verify implements port.PasswordHasher, dispatching on the encoded prefix.
func (h *MultiHasher) Verify(password, encoded string) (bool, error) {
	switch DetectAlgorithm(encoded) {
	case AlgorithmBcrypt:
		return h.bcrypt.Verify(password, encoded)
	case AlgorithmArgon2id:
		return h.argon2.Verify(password, encoded)
	default:
		return false, fmt.Errorf("unrecognized password hash encoding")
	}
}

// NeedsRehash implements port.PasswordHasher.
func (h *MultiHasher) NeedsRehash(encoded string) bool {
	return h.primary.NeedsRehash(encoded)
}

// DetectAlgorithm identifies the algorithm that produced encoded, or returns "".
func DetectAlgorithm(encoded string) string {
	switch {
	case strings.HasPrefix(encoded, "$2a$"), strings.HasPrefix(encoded, "$2b$"), strings.HasPrefix(encoded, "$2y$"):
		return AlgorithmBcrypt
	case strings.HasPrefix(encoded, argon2Variant+"$"):
		return AlgorithmArgon2id
	default:
		return ""
	}
}

var (
	_ port.PasswordHasher = (*BcryptHasher)(nil)
	_ port.PasswordHasher = (*Argon2Hasher)(nil)
	_ port.PasswordHasher = (*MultiHasher)(nil)
)
