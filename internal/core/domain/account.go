package domain

import (
	"regexp"
	"strings"
	"time"
)

// Role enumerates the account roles known to the marketplace.
type Role string

const (
	RoleUser          Role = "user"
	RoleVendor        Role = "vendor"
	RoleAdministrator Role = "administrator"
)

// DefaultRole is assigned when no role, or an unknown one, is supplied.
const DefaultRole = RoleUser

var roleAliases = map[string]Role{
	"user":          RoleUser,
	"usuario":       RoleUser,
	"vendor":        RoleVendor,
	"vendedor":      RoleVendor,
	"administrator": RoleAdministrator,
	"administrador": RoleAdministrator,
}

// NormalizeRole maps raw input onto the canonical role set, falling back to DefaultRole.
func NormalizeRole(raw string) Role {
	if role, ok := roleAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return role
	}
	return DefaultRole
}

// Valid reports whether r belongs to the canonical role set.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleVendor, RoleAdministrator:
		return true
	default:
		return false
	}
}

// IdentifierKind tells whether an identifier is an email address or a phone number.
type IdentifierKind string

const (
	IdentifierUnknown IdentifierKind = ""
	IdentifierEmail   IdentifierKind = "email"
	IdentifierPhone   IdentifierKind = "phone"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?\d{8,15}$`)

	phoneSeparators = strings.NewReplacer(" ", "", "-", "", ".", "", "(", "", ")", "")
)

// NormalizeIdentifier trims the value, lower-cases emails and strips common phone separators.
// Phone numbers always carry a leading "+".
func NormalizeIdentifier(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if strings.Contains(trimmed, "@") {
		return strings.ToLower(trimmed)
	}
	if candidate := phoneSeparators.Replace(trimmed); phonePattern.MatchString(candidate) {
		if !strings.HasPrefix(candidate, "+") {
			candidate = "+" + candidate
		}
		return candidate
	}
	return trimmed
}

// ClassifyIdentifier reports the kind of an already normalized identifier.
func ClassifyIdentifier(identifier string) IdentifierKind {
	switch {
	case emailPattern.MatchString(identifier):
		return IdentifierEmail
	case phonePattern.MatchString(identifier):
		return IdentifierPhone
	default:
		return IdentifierUnknown
	}
}

// Account mirrors the persisted representation in the accounts table.
type Account struct {
	ID           int64
	Name         string
	Surname      string
	Identifier   string
	Phone        *string
	Address      string
	PasswordHash string `json:"-"`
	PasswordAlgo string `json:"-"`
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AccountView is the externally visible projection of an account.
type AccountView struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Surname    string    `json:"surname,omitempty"`
	Identifier string    `json:"identifier"`
	Phone      *string   `json:"phone,omitempty"`
	Address    string    `json:"address,omitempty"`
	Role       Role      `json:"role"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// View strips credential material from the account.
func (a Account) View() AccountView {
	return AccountView{
		ID:         a.ID,
		Name:       a.Name,
		Surname:    a.Surname,
		Identifier: a.Identifier,
		Phone:      a.Phone,
		Address:    a.Address,
		Role:       a.Role,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

// NewAccount captures the fields required to insert an account.
type NewAccount struct {
	Name         string
	Surname      string
	Identifier   string
	Phone        *string
	Address      string
	PasswordHash string
	PasswordAlgo string
	Role         Role
}
