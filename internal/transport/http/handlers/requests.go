package handlers

import (
	"time"

	"github.com/MiguelGP111/micampofresco/internal/core/domain"
)

// RegisterRequest is the registration payload. Identifier is an email address or phone number.
type RegisterRequest struct {
	Name       string `json:"name"`
	Surname    string `json:"surname"`
	Identifier string `json:"identifier"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	Password   string `json:"password"`
	Role       string `json:"role"`
}

// LoginRequest carries credentials for user and admin login.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// RecoverRequest asks for a recovery code, or resets directly when Password is set.
type RecoverRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password,omitempty"`
	Via        string `json:"via,omitempty"`
}

// ResetRequest redeems a recovery code.
type ResetRequest struct {
	Identifier  string `json:"identifier"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

// RecoveryResponse describes where a recovery code was sent.
type RecoveryResponse struct {
	Channel     string    `json:"channel"`
	Destination string    `json:"destination"`
	ExpiresAt   time.Time `json:"expires_at"`
	Code        string    `json:"code,omitempty"`
}

// SessionResponse is returned after login and registration.
type SessionResponse struct {
	Account   domain.AccountView `json:"account"`
	ExpiresAt time.Time          `json:"expires_at"`
}

// Legacy Spanish payloads accepted on /auth.

type registroRequest struct {
	Nombre    string `json:"nombre"`
	Apellido  string `json:"apellido"`
	Correo    string `json:"correo"`
	Celular   string `json:"celular"`
	Direccion string `json:"direccion"`
	Password  string `json:"password"`
	Rol       string `json:"rol"`
}

type loginLegacyRequest struct {
	Correo   string `json:"correo"`
	Celular  string `json:"celular"`
	Password string `json:"password"`
}

type recuperarRequest struct {
	Correo   string `json:"correo"`
	Celular  string `json:"celular"`
	Password string `json:"password,omitempty"`
	Via      string `json:"via,omitempty"`
}

// restablecerRequest carries the new password in password; nuevaPassword is still read when password is empty.
type restablecerRequest struct {
	Correo        string `json:"correo"`
	Celular       string `json:"celular"`
	Codigo        string `json:"codigo"`
	Password      string `json:"password"`
	NuevaPassword string `json:"nuevaPassword,omitempty"`
}

func (r restablecerRequest) newPassword() string {
	if r.Password != "" {
		return r.Password
	}
	return r.NuevaPassword
}

// HealthResponse is the liveness body.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse reports each named dependency check.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
