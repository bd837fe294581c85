package security

import (
	"strings"

	"github.com/MiguelGP111/micampofresco/internal/core/port"
)

const (
	defaultMinPasswordLength = 6
	maxPasswordBytes         = 72
)

// PasswordPolicy builds a validator per call so contextual inputs (name, identifier)
// feed the strength estimate.
type PasswordPolicy struct {
	minLength   int
	minStrength int
}

// NewPasswordPolicy returns a policy with the given minimum length and zxcvbn score.
// A minStrength of zero disables the strength check.
func NewPasswordPolicy(minLength, minStrength int) *PasswordPolicy {
	if minLength <= 0 {
		minLength = defaultMinPasswordLength
	}
	return &PasswordPolicy{minLength: minLength, minStrength: minStrength}
}

// DefaultPasswordPolicy enforces the minimum length only.
func DefaultPasswordPolicy() *PasswordPolicy {
	return NewPasswordPolicy(defaultMinPasswordLength, 0)
}

// Validate implements port.PasswordPolicyValidator.
func (p *PasswordPolicy) Validate(password string, inputs ...string) error {
	if p == nil {
		p = DefaultPasswordPolicy()
	}

	cleaned := make([]string, 0, len(inputs))
	for _, in := range inputs {
		if trimmed := strings.TrimSpace(in); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}

	rules := []PasswordRule{
		MinLengthRule(p.minLength),
		MaxBytesRule(maxPasswordBytes),
	}
	for _, in := range cleaned {
		rules = append(rules, RequireDifferentFrom(in))
	}
	rules = append(rules, RequirePasswordStrengthRule(p.minStrength, cleaned...))

	return NewPasswordValidator(rules...).Validate(password)
}

var _ port.PasswordPolicyValidator = (*PasswordPolicy)(nil)
