package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/MiguelGP111/micampofresco/internal/core/domain"
)

const (
	// ClaimsKey is the gin context key holding the verified domain.TokenClaims.
	ClaimsKey = "claims"
	// AccountIDKey is the gin context key holding the authenticated account id.
	AccountIDKey = "account_id"
)

// TokenVerifier decodes bearer tokens for one issuing context.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (domain.TokenClaims, error)
}

// errorEnvelope matches the handlers envelope for failures raised in middleware.
type errorEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

func abortWithError(c *gin.Context, status int, kind, message string) {
	c.AbortWithStatusJSON(status, errorEnvelope{
		Success: false,
		Message: message,
		Kind:    kind,
		TraceID: GetTraceID(c),
	})
}

// RequireAuth validates the Authorization header and stores the claims on the context.
// Expired and invalid tokens are reported with distinct messages.
func RequireAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, http.StatusUnauthorized, domain.KindTokenInvalid, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortWithError(c, http.StatusUnauthorized, domain.KindTokenInvalid, "invalid authorization format: expected 'Bearer <token>'")
			return
		}

		token := strings.TrimSpace(parts[1])
		if token == "" {
			abortWithError(c, http.StatusUnauthorized, domain.KindTokenInvalid, "missing access token")
			return
		}

		claims, err := verifier.VerifyToken(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrTokenExpired):
				abortWithError(c, http.StatusUnauthorized, domain.KindTokenExpired, "token expired")
			case errors.Is(err, domain.ErrTokenInvalid):
				abortWithError(c, http.StatusUnauthorized, domain.KindTokenInvalid, "invalid token")
			default:
				abortWithError(c, http.StatusInternalServerError, domain.KindInternal, "authentication failed")
			}
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(AccountIDKey, claims.AccountID)

		if reqCtx := GetRequestContext(c); reqCtx != nil {
			reqCtx.AccountID = claims.AccountID
		}

		c.Next()
	}
}

// RequireRole rejects authenticated callers whose role is not listed.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetClaims(c)
		if !ok {
			abortWithError(c, http.StatusUnauthorized, domain.KindTokenInvalid, "authentication required")
			return
		}

		for _, role := range roles {
			if claims.Role == role {
				c.Next()
				return
			}
		}

		abortWithError(c, http.StatusForbidden, "forbidden", "insufficient permissions")
	}
}

// GetClaims returns the claims stored by RequireAuth.
func GetClaims(c *gin.Context) (domain.TokenClaims, bool) {
	val, exists := c.Get(ClaimsKey)
	if !exists {
		return domain.TokenClaims{}, false
	}
	claims, ok := val.(domain.TokenClaims)
	return claims, ok
}
