package domain

import "time"

// Token issuing contexts. Each context signs with its own issuer claim and TTL.
const (
	TokenContextAuth  = "auth"
	TokenContextAdmin = "admin"
)

// TokenClaims is the decoded content of a bearer token.
type TokenClaims struct {
	TokenID    string
	AccountID  int64
	Identifier string
	Role       Role
	Context    string
	IssuedAt   time.Time
	ExpiresAt  time.Time
}
