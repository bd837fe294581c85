package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MiguelGP111/micampofresco/internal/core/domain"
	"github.com/MiguelGP111/micampofresco/internal/transport/http/middleware"
	"github.com/MiguelGP111/micampofresco/internal/usecase"
)

// AdminHandler exposes the administrator console login.
type AdminHandler struct {
	admin  *usecase.AdminService
	errors *ErrorResponder
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(admin *usecase.AdminService, errs *ErrorResponder) *AdminHandler {
	if errs == nil {
		errs = NewErrorResponder(nil, false)
	}
	return &AdminHandler{admin: admin, errors: errs}
}

// Login godoc
// @Summary Administrator login
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} Envelope
// @Failure 401 {object} Envelope
// @Router /api/v1/admin/login [post]
func (h *AdminHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadBody(c)
		return
	}

	result, err := h.admin.Login(c.Request.Context(), usecase.LoginInput{Identifier: req.Identifier, Password: req.Password})
	if err != nil {
		h.errors.Respond(c, err)
		return
	}
	respondOK(c, http.StatusOK, "login successful", SessionResponse{
		Account:   result.Account,
		ExpiresAt: result.ExpiresAt,
	}, result.Token)
}

// Me returns the administrator behind the admin token.
func (h *AdminHandler) Me(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required", domain.KindTokenInvalid))
		return
	}
	view, err := h.admin.Profile(c.Request.Context(), claims.AccountID)
	if err != nil {
		h.errors.Respond(c, err)
		return
	}
	respondOK(c, http.StatusOK, "profile loaded", view, "")
}
