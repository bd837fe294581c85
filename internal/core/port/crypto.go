package port

import "github.com/MiguelGP111/micampofresco/internal/core/domain"

// PasswordPolicyValidator enforces password requirements.
type PasswordPolicyValidator interface {
	Validate(password string, inputs ...string) error
}

// PasswordHasher hashes and verifies secrets using the configured algorithm.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password string, encoded string) (bool, error)
	// Algorithm names the algorithm used by Hash.
	Algorithm() string
	// NeedsRehash reports whether encoded was produced by a different algorithm or cost.
	NeedsRehash(encoded string) bool
}

// TokenIssuer signs and verifies bearer tokens for one issuing context.
type TokenIssuer interface {
	Issue(account domain.Account) (string, domain.TokenClaims, error)
	Verify(token string) (domain.TokenClaims, error)
}
