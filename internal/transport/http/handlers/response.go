package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MiguelGP111/micampofresco/internal/core/domain"
	"github.com/MiguelGP111/micampofresco/internal/transport/http/middleware"
)

// Envelope is the JSON body of every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Token   string `json:"token,omitempty"`
	Kind    string `json:"kind,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse builds a failure envelope carrying the request trace ID.
func NewErrorResponse(c *gin.Context, message, kind string) Envelope {
	return Envelope{
		Success: false,
		Message: message,
		Kind:    kind,
		TraceID: middleware.GetTraceID(c),
	}
}

func respondOK(c *gin.Context, status int, message string, data any, token string) {
	c.JSON(status, Envelope{
		Success: true,
		Message: message,
		Data:    data,
		Token:   token,
	})
}

func respondBadBody(c *gin.Context) {
	c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request body", domain.KindValidation))
}
