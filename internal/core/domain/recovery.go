package domain

import "time"

// RecoveryCodeLength is the number of digits in a recovery code.
const RecoveryCodeLength = 6

// Delivery channels for recovery codes.
const (
	ChannelEmail    = "email"
	ChannelWhatsApp = "whatsapp"
	ChannelLog      = "log"
)

// RecoveryEntry is a one-time code issued for an account identifier.
type RecoveryEntry struct {
	Identifier string
	AccountID  int64
	Code       string
	Channel    string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	Used       bool
	UsedAt     *time.Time
}

// Expired reports whether the entry is past its expiry at the supplied instant.
func (e RecoveryEntry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// Notification describes an out-of-band delivery of a recovery code.
type Notification struct {
	Channel     string
	Destination string
	Name        string
	Code        string
	ExpiresAt   time.Time
}
