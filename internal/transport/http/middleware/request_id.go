package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/MiguelGP111/micampofresco/internal/infra/logger"
)

const (
	requestIDHeader = "X-Request-ID"
	// client supplied ids longer than this are replaced
	maxRequestIDLength = 128
)

// RequestID injects a correlation identifier into the request context and response headers.
// Usecases and event publishers read it back through logger.RequestIDKey.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(requestIDHeader)
		if reqID == "" || len(reqID) > maxRequestIDLength {
			reqID = uuid.NewString()
		}

		c.Writer.Header().Set(requestIDHeader, reqID)
		ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey{}, reqID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
