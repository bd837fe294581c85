package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/MiguelGP111/micampofresco/internal/usecase"
)

// Spanish-field aliases kept for the first mobile client. They share the English handlers' behaviour.

// LegacyRegister handles POST /auth/registro.
func (h *AuthHandler) LegacyRegister(c *gin.Context) {
	var req registroRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadBody(c)
		return
	}

	identifier := legacyIdentifier(req.Correo, req.Celular)
	phone := ""
	if strings.TrimSpace(req.Correo) != "" {
		phone = req.Celular
	}

	h.register(c, usecase.RegisterInput{
		Name:       req.Nombre,
		Surname:    req.Apellido,
		Identifier: identifier,
		Phone:      phone,
		Address:    req.Direccion,
		Password:   req.Password,
		Role:       req.Rol,
	})
}

// LegacyLogin handles POST /auth/login.
func (h *AuthHandler) LegacyLogin(c *gin.Context) {
	var req loginLegacyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadBody(c)
		return
	}
	h.login(c, usecase.LoginInput{
		Identifier: legacyIdentifier(req.Correo, req.Celular),
		Password:   req.Password,
	})
}

// LegacyRecover handles POST /auth/recuperar.
func (h *AuthHandler) LegacyRecover(c *gin.Context) {
	var req recuperarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadBody(c)
		return
	}
	h.recover(c, legacyIdentifier(req.Correo, req.Celular), req.Password, req.Via)
}

// LegacyReset handles POST /auth/restablecer.
func (h *AuthHandler) LegacyReset(c *gin.Context) {
	var req restablecerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadBody(c)
		return
	}
	h.reset(c, usecase.RedeemInput{
		Identifier:  legacyIdentifier(req.Correo, req.Celular),
		Code:        req.Codigo,
		NewPassword: req.newPassword(),
	})
}

// legacyIdentifier prefers the email field; older clients send the phone in celular only.
func legacyIdentifier(correo, celular string) string {
	if strings.TrimSpace(correo) != "" {
		return correo
	}
	return celular
}
