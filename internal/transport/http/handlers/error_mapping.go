package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MiguelGP111/micampofresco/internal/core/domain"
	"github.com/MiguelGP111/micampofresco/internal/infra/logger"
	"github.com/MiguelGP111/micampofresco/internal/usecase"
)

// ErrorCase maps a sentinel error to an HTTP status code and response message.
// An empty Message echoes the error text.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// DefaultErrorCases covers every domain error kind.
var DefaultErrorCases = []ErrorCase{
	{Err: domain.ErrValidation, Status: http.StatusBadRequest},
	{Err: domain.ErrConflict, Status: http.StatusConflict, Message: "an account with this identifier already exists"},
	{Err: domain.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid credentials"},
	{Err: domain.ErrInvalidCode, Status: http.StatusBadRequest, Message: "invalid recovery code"},
	{Err: domain.ErrCodeAlreadyUsed, Status: http.StatusBadRequest, Message: "recovery code already used"},
	{Err: domain.ErrCodeExpired, Status: http.StatusBadRequest, Message: "recovery code expired"},
	{Err: domain.ErrTokenExpired, Status: http.StatusUnauthorized, Message: "token expired"},
	{Err: domain.ErrTokenInvalid, Status: http.StatusUnauthorized, Message: "invalid token"},
	{Err: domain.ErrDirectResetDisabled, Status: http.StatusForbidden, Message: "direct password reset is disabled"},
	{Err: domain.ErrDelivery, Status: http.StatusInternalServerError, Message: "recovery code could not be delivered"},
	{Err: domain.ErrStore, Status: http.StatusInternalServerError, Message: "internal server error"},
}

const internalErrorMessage = "internal server error"

func resolveError(err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) (int, string) {
	for _, cs := range cases {
		if cs.Err == nil || !errors.Is(err, cs.Err) {
			continue
		}
		if cs.Message == "" {
			return cs.Status, err.Error()
		}
		return cs.Status, cs.Message
	}
	return fallbackStatus, fallbackMessage
}

// RespondWithMappedError resolves the provided error against known cases or falls back to a generic response.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}
	status, message := resolveError(err, cases, fallbackStatus, fallbackMessage)
	c.JSON(status, NewErrorResponse(c, message, domain.Kind(err)))
}

// ErrorResponder logs failures and writes the mapped envelope.
type ErrorResponder struct {
	cases         []ErrorCase
	logger        *zap.Logger
	exposeDetails bool
}

// NewErrorResponder uses DefaultErrorCases. exposeDetails appends raw error text to 5xx messages.
func NewErrorResponder(log *zap.Logger, exposeDetails bool) *ErrorResponder {
	if log == nil {
		log = zap.NewNop()
	}
	return &ErrorResponder{cases: DefaultErrorCases, logger: log, exposeDetails: exposeDetails}
}

// Respond writes err to c.
func (r *ErrorResponder) Respond(c *gin.Context, err error) {
	kind := domain.Kind(err)
	log := r.logger.With(logger.ContextFields(c.Request.Context())...).With(
		zap.String("path", c.FullPath()),
		zap.String("kind", kind),
	)

	var limited *usecase.RateLimitExceededError
	if errors.As(err, &limited) {
		seconds := max(int(math.Ceil(limited.RetryAfter.Seconds())), 0)
		c.Header("Retry-After", strconv.Itoa(seconds))
		log.Info("request rate limited", zap.String("scope", limited.Scope))
		c.JSON(http.StatusTooManyRequests, NewErrorResponse(c, "too many requests, try again later", kind))
		return
	}

	status, message := resolveError(err, r.cases, http.StatusInternalServerError, internalErrorMessage)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
		if r.exposeDetails {
			message = message + ": " + err.Error()
		}
	} else {
		log.Debug("request rejected", zap.Error(err))
	}

	c.JSON(status, NewErrorResponse(c, message, kind))
}
