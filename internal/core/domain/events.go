package domain

import "time"

// AccountRegisteredEvent represents the payload for account.registered messages.
type AccountRegisteredEvent struct {
	EventID      string
	AccountID    int64
	Identifier   string
	Kind         IdentifierKind
	Role         Role
	RegisteredAt time.Time
	Metadata     map[string]any
}

// PasswordChangedEvent represents the payload for account.password.changed messages.
type PasswordChangedEvent struct {
	EventID   string
	AccountID int64
	Method    string
	ChangedAt time.Time
	Metadata  map[string]any
}

// RecoveryRequestedEvent represents the payload for account.recovery.requested messages.
type RecoveryRequestedEvent struct {
	EventID           string
	AccountID         int64
	Channel           string
	MaskedDestination string
	RequestedAt       time.Time
	ExpiresAt         time.Time
	IPAddress         *string
	Metadata          map[string]any
}
