package security

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"

	"github.com/MiguelGP111/micampofresco/internal/core/domain"
	"github.com/MiguelGP111/micampofresco/internal/core/port"
)

// ErrSecretMissing indicates a token issuer was configured without a signing secret.
var ErrSecretMissing = errors.New("jwt: signing secret is required")

const defaultTokenTTL = time.Hour

// AccountClaims carries the account identity inside a signed token.
type AccountClaims struct {
	AccountID  int64  `json:"id"`
	Identifier string `json:"identifier"`
	Role       string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuerConfig configures a TokenIssuer for one issuing context.
type TokenIssuerConfig struct {
	// Context is written to the iss claim and must match on verification.
	Context string
	Secret  string
	TTL     time.Duration
	Clock   func() time.Time
}

// TokenIssuer signs and verifies HS256 tokens bound to a single context.
// Tokens minted for one context fail verification in any other.
type TokenIssuer struct {
	context string
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
}

// NewTokenIssuer validates cfg and returns an issuer.
func NewTokenIssuer(cfg TokenIssuerConfig) (*TokenIssuer, error) {
	context := strings.TrimSpace(cfg.Context)
	if context == "" {
		return nil, fmt.Errorf("jwt: issuer context is required")
	}
	if cfg.Secret == "" {
		return nil, ErrSecretMissing
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &TokenIssuer{
		context: context,
		secret:  []byte(cfg.Secret),
		ttl:     ttl,
		now:     clock,
	}, nil
}

// Context returns the issuing context name.
func (i *TokenIssuer) Context() string {
	return i.context
}

// Issue implements port.TokenIssuer.
func (i *TokenIssuer) Issue(account domain.Account) (string, domain.TokenClaims, error) {
	now := i.now().UTC().Truncate(time.Second)
	expires := now.Add(i.ttl)
	jti := uuid.NewString()

	claims := &AccountClaims{
		AccountID:  account.ID,
		Identifier: account.Identifier,
		Role:       string(account.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.context,
			Subject:   strconv.FormatInt(account.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			ID:        jti,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", domain.TokenClaims{}, fmt.Errorf("jwt: sign token: %w", err)
	}

	return signed, domain.TokenClaims{
		TokenID:    jti,
		AccountID:  account.ID,
		Identifier: account.Identifier,
		Role:       account.Role,
		Context:    i.context,
		IssuedAt:   now,
		ExpiresAt:  expires,
	}, nil
}

// Verify implements port.TokenIssuer. Expired tokens yield domain.ErrTokenExpired;
// every other failure yields domain.ErrTokenInvalid.
func (i *TokenIssuer) Verify(raw string) (domain.TokenClaims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.TokenClaims{}, domain.ErrTokenInvalid
	}

	claims := &AccountClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.context),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)

	_, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.TokenClaims{}, domain.ErrTokenExpired
		}
		return domain.TokenClaims{}, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}

	result := domain.TokenClaims{
		TokenID:    claims.ID,
		AccountID:  claims.AccountID,
		Identifier: claims.Identifier,
		Role:       domain.Role(claims.Role),
		Context:    claims.Issuer,
	}
	if claims.IssuedAt != nil {
		result.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	if claims.ExpiresAt != nil {
		result.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return result, nil
}

var _ port.TokenIssuer = (*TokenIssuer)(nil)
