package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/MiguelGP111/micampofresco/internal/core/domain"
	"github.com/MiguelGP111/micampofresco/internal/transport/http/middleware"
	"github.com/MiguelGP111/micampofresco/internal/usecase"
)

const recoveryRequestedMessage = "if the account exists, a recovery code has been sent"

// AuthHandler exposes registration, login and password recovery endpoints.
type AuthHandler struct {
	auth       *usecase.AuthService
	errors     *ErrorResponder
	exposeCode bool
}

// AuthHandlerOption configures optional AuthHandler behaviour.
type AuthHandlerOption func(*AuthHandler)

// WithCodeExposure returns issued recovery codes in the response body. Development only.
func WithCodeExposure(expose bool) AuthHandlerOption {
	return func(h *AuthHandler) {
		h.exposeCode = expose
	}
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService, errs *ErrorResponder, opts ...AuthHandlerOption) *AuthHandler {
	if errs == nil {
		errs = NewErrorResponder(nil, false)
	}
	h := &AuthHandler{auth: auth, errors: errs}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Register godoc
// @Summary Register a new account
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration payload"
// @Success 201 {object} Envelope
// @Failure 400 {object} Envelope
// @Failure 409 {object} Envelope
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadBody(c)
		return
	}
	h.register(c, usecase.RegisterInput{
		Name:       req.Name,
		Surname:    req.Surname,
		Identifier: req.Identifier,
		Phone:      req.Phone,
		Address:    req.Address,
		Password:   req.Password,
		Role:       req.Role,
	})
}

// Login godoc
// @Summary Authenticate with identifier and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} Envelope
// @Failure 401 {object} Envelope
// @Failure 429 {object} Envelope
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadBody(c)
		return
	}
	h.login(c, usecase.LoginInput{Identifier: req.Identifier, Password: req.Password})
}

// Recover godoc
// @Summary Request a recovery code, or reset directly when a password is supplied
// @Tags Recovery
// @Accept json
// @Produce json
// @Param request body RecoverRequest true "Recovery payload"
// @Success 200 {object} Envelope
// @Failure 403 {object} Envelope
// @Failure 429 {object} Envelope
// @Router /api/v1/auth/recover [post]
func (h *AuthHandler) Recover(c *gin.Context) {
	var req RecoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadBody(c)
		return
	}
	h.recover(c, req.Identifier, req.Password, req.Via)
}

// Reset godoc
// @Summary Redeem a recovery code for a new password
// @Tags Recovery
// @Accept json
// @Produce json
// @Param request body ResetRequest true "Code and new password"
// @Success 200 {object} Envelope
// @Failure 400 {object} Envelope
// @Router /api/v1/auth/reset [post]
func (h *AuthHandler) Reset(c *gin.Context) {
	var req ResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadBody(c)
		return
	}
	h.reset(c, usecase.RedeemInput{Identifier: req.Identifier, Code: req.Code, NewPassword: req.NewPassword})
}

// Me godoc
// @Summary Current account profile
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Envelope
// @Failure 401 {object} Envelope
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required", domain.KindTokenInvalid))
		return
	}
	view, err := h.auth.Profile(c.Request.Context(), claims.AccountID)
	if err != nil {
		h.errors.Respond(c, err)
		return
	}
	respondOK(c, http.StatusOK, "profile loaded", view, "")
}

// Logout acknowledges the end of a session. Tokens are stateless and stay valid until they expire.
func (h *AuthHandler) Logout(c *gin.Context) {
	respondOK(c, http.StatusOK, "logged out", nil, "")
}

func (h *AuthHandler) register(c *gin.Context, in usecase.RegisterInput) {
	result, err := h.auth.Register(c.Request.Context(), in)
	if err != nil {
		h.errors.Respond(c, err)
		return
	}
	respondOK(c, http.StatusCreated, "account registered", SessionResponse{
		Account:   result.Account,
		ExpiresAt: result.ExpiresAt,
	}, result.Token)
}

func (h *AuthHandler) login(c *gin.Context, in usecase.LoginInput) {
	result, err := h.auth.Login(c.Request.Context(), in)
	if err != nil {
		h.errors.Respond(c, err)
		return
	}
	respondOK(c, http.StatusOK, "login successful", SessionResponse{
		Account:   result.Account,
		ExpiresAt: result.ExpiresAt,
	}, result.Token)
}

func (h *AuthHandler) recover(c *gin.Context, identifier, password, via string) {
	ctx := c.Request.Context()

	if strings.TrimSpace(password) != "" {
		if err := h.auth.ResetPasswordDirect(ctx, usecase.DirectResetInput{Identifier: identifier, Password: password}); err != nil {
			h.errors.Respond(c, err)
			return
		}
		respondOK(c, http.StatusOK, "password updated", nil, "")
		return
	}

	result, err := h.auth.RequestRecoveryCode(ctx, usecase.RecoveryRequestInput{Identifier: identifier, Via: via, IP: c.ClientIP()})
	if err != nil {
		h.errors.Respond(c, err)
		return
	}

	resp := RecoveryResponse{
		Channel:     result.Channel,
		Destination: result.MaskedDestination,
		ExpiresAt:   result.ExpiresAt,
	}
	if h.exposeCode {
		resp.Code = result.Code
	}
	respondOK(c, http.StatusOK, recoveryRequestedMessage, resp, "")
}

func (h *AuthHandler) reset(c *gin.Context, in usecase.RedeemInput) {
	if err := h.auth.RedeemRecovery(c.Request.Context(), in); err != nil {
		h.errors.Respond(c, err)
		return
	}
	respondOK(c, http.StatusOK, "password updated", nil, "")
}
