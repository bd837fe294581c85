package domain

import "errors"

var (
	// ErrValidation indicates malformed or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates the identifier or phone is already registered.
	ErrConflict = errors.New("account already registered")
	// ErrInvalidCredentials is returned for any login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidCode indicates no matching recovery code exists for the identifier.
	ErrInvalidCode = errors.New("invalid recovery code")
	// ErrCodeAlreadyUsed indicates the recovery code was already redeemed.
	ErrCodeAlreadyUsed = errors.New("recovery code already used")
	// ErrCodeExpired indicates the recovery code is past its expiry.
	ErrCodeExpired = errors.New("recovery code expired")
	// ErrTokenExpired indicates a bearer token is past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid indicates a malformed or badly signed bearer token.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrStore wraps persistence failures.
	ErrStore = errors.New("store failure")
	// ErrDelivery wraps notification delivery failures.
	ErrDelivery = errors.New("delivery failure")
	// ErrDirectResetDisabled is returned when inline password reset is switched off.
	ErrDirectResetDisabled = errors.New("direct password reset disabled")
)

// ValidationError reports the first invalid input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// Unwrap lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Stable error kind tags exposed at the service boundary.
const (
	KindValidation          = "validation"
	KindConflict            = "conflict"
	KindInvalidCredentials  = "invalid_credentials"
	KindInvalidCode         = "invalid_code"
	KindCodeAlreadyUsed     = "code_already_used"
	KindCodeExpired         = "code_expired"
	KindTokenExpired        = "token_expired"
	KindTokenInvalid        = "token_invalid"
	KindStore               = "store"
	KindDelivery            = "delivery"
	KindDirectResetDisabled = "direct_reset_disabled"
	KindRateLimited         = "rate_limited"
	KindInternal            = "internal"
)

var kindTable = []struct {
	err  error
	kind string
}{
	{ErrValidation, KindValidation},
	{ErrConflict, KindConflict},
	{ErrInvalidCredentials, KindInvalidCredentials},
	{ErrInvalidCode, KindInvalidCode},
	{ErrCodeAlreadyUsed, KindCodeAlreadyUsed},
	{ErrCodeExpired, KindCodeExpired},
	{ErrTokenExpired, KindTokenExpired},
	{ErrTokenInvalid, KindTokenInvalid},
	{ErrDirectResetDisabled, KindDirectResetDisabled},
	{ErrDelivery, KindDelivery},
	{ErrStore, KindStore},
}

// Kind returns the stable tag for err, or KindInternal for unclassified errors.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	var kinded interface{ Kind() string }
	if errors.As(err, &kinded) {
		return kinded.Kind()
	}
	for _, entry := range kindTable {
		if errors.Is(err, entry.err) {
			return entry.kind
		}
	}
	return KindInternal
}
