package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lpai/backend/internal/application/onboarding"
	"github.com/lpai/backend/internal/domain/crm"
	"github.com/lpai/backend/internal/domain/shared"
	"github.com/lpai/backend/internal/infrastructure/tasks"
	"github.com/lpai/backend/internal/interfaces/http/dto"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return c.GetHeader("X-Request-ID")
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Accepted sends a 202 accepted response for work that continues in the
// background
func (h *BaseHandler) Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(data))
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleError converts domain and pipeline errors to HTTP responses
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	switch {
	case errors.As(err, &domainErr):
		code := dto.NormalizeErrorCode(domainErr.Code)
		h.Error(c, dto.GetHTTPStatus(code), code, domainErr.Message)
	case errors.Is(err, shared.ErrNotFound):
		h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, "Resource not found")
	case errors.Is(err, onboarding.ErrRunInProgress):
		h.Error(c, http.StatusConflict, dto.ErrCodeRunInProgress, "An onboarding run is already in progress for this tenant")
	case errors.Is(err, crm.ErrValidation):
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, err.Error())
	case errors.Is(err, crm.ErrAuthUnavailable), errors.Is(err, crm.ErrAuthFailure):
		h.Error(c, http.StatusUnprocessableEntity, dto.ErrCodeUpstreamAuth, err.Error())
	case errors.Is(err, crm.ErrRateLimited):
		h.Error(c, http.StatusTooManyRequests, dto.ErrCodeRateLimited, "The external CRM is throttling requests")
	case errors.Is(err, tasks.ErrQueueFull):
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeBusy, "The background queue is saturated, retry shortly")
	case errors.Is(err, crm.ErrUnexpectedTransport):
		h.Error(c, http.StatusBadGateway, dto.ErrCodeUpstream, "The external CRM returned an unexpected response")
	default:
		h.InternalError(c, "An unexpected error occurred")
	}
}
