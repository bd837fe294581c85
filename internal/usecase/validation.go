package usecase

import (
	"strings"

	"github.com/MiguelGP111/micampofresco/internal/core/domain"
)

func requireName(name string) error {
	if strings.TrimSpace(name) == "" {
		return domain.NewValidationError("name", "name is required")
	}
	return nil
}

// validateIdentifier normalizes raw and checks that it is an email or a phone number.
func validateIdentifier(raw string) (string, domain.IdentifierKind, error) {
	identifier := domain.NormalizeIdentifier(raw)
	if identifier == "" {
		return "", domain.IdentifierUnknown, domain.NewValidationError("identifier", "email or phone is required")
	}
	kind := domain.ClassifyIdentifier(identifier)
	if kind == domain.IdentifierUnknown {
		return "", domain.IdentifierUnknown, domain.NewValidationError("identifier", "identifier must be a valid email or phone number")
	}
	return identifier, kind, nil
}

func validateOptionalPhone(raw string) (*string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	phone := domain.NormalizeIdentifier(raw)
	if domain.ClassifyIdentifier(phone) != domain.IdentifierPhone {
		return nil, domain.NewValidationError("phone", "phone must contain 8 to 15 digits")
	}
	return &phone, nil
}

func validateCode(raw string) (string, error) {
	code := strings.TrimSpace(raw)
	if code == "" {
		return "", domain.NewValidationError("code", "recovery code is required")
	}
	return code, nil
}

// channelFor picks the delivery channel matching the identifier kind.
func channelFor(kind domain.IdentifierKind) string {
	if kind == domain.IdentifierPhone {
		return domain.ChannelWhatsApp
	}
	return domain.ChannelEmail
}

// resolveChannel honours an explicit via and otherwise follows the identifier kind.
func resolveChannel(via string, kind domain.IdentifierKind) (string, error) {
	switch strings.ToLower(strings.TrimSpace(via)) {
	case "":
		return channelFor(kind), nil
	case domain.ChannelEmail, "correo":
		return domain.ChannelEmail, nil
	case domain.ChannelWhatsApp:
		return domain.ChannelWhatsApp, nil
	default:
		return "", domain.NewValidationError("via", "via must be email or whatsapp")
	}
}

// destinationFor returns where a code for account goes on channel.
func destinationFor(account *domain.Account, identifier string, kind domain.IdentifierKind, channel string) (string, bool) {
	switch channel {
	case domain.ChannelWhatsApp:
		if kind == domain.IdentifierPhone {
			return identifier, true
		}
		if account.Phone != nil && *account.Phone != "" {
			return *account.Phone, true
		}
	case domain.ChannelEmail:
		if kind == domain.IdentifierEmail {
			return identifier, true
		}
		if domain.ClassifyIdentifier(account.Identifier) == domain.IdentifierEmail {
			return account.Identifier, true
		}
	}
	return "", false
}
