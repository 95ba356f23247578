package apierrors

import (
	"net/http"

	"voicebridge-server/internal/observability"

	"github.com/gin-gonic/gin"
)

// Package-level logger that uses context for observability
var logger = observability.NewLogger()

// ErrorResponse is the JSON structure returned to API clients for errors
type ErrorResponse struct {
	Error string `json:"error"`          // User-friendly error message
	Code  string `json:"code,omitempty"` // Machine-readable error code
}

// respond writes the error response and logs correlation info
func respond(c *gin.Context, statusCode int, code, message string) {
	ctx := c.Request.Context()
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "status_code", Value: statusCode},
		observability.Field{Key: "error_code", Value: code},
		observability.Field{Key: "error_message", Value: message},
	)
	logger.Info(ctx, "API error response")

	c.JSON(statusCode, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// RespondWithError handles error logging and sends a sanitized JSON response
// to the client. The processor has already logged the detailed error; this
// entry carries the request_id for correlation.
func RespondWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	apiErr := MapError(err)
	respond(c, apiErr.StatusCode, apiErr.Code, apiErr.Message)
}

// NotFound sends a 404 response
func NotFound(c *gin.Context, message string) {
	respond(c, http.StatusNotFound, CodeNotFound, message)
}

// BadRequest sends a 400 response
func BadRequest(c *gin.Context, code, message string) {
	respond(c, http.StatusBadRequest, code, message)
}

// InternalError sends a sanitized 500 response - never exposes internal details
func InternalError(c *gin.Context, internalErr error) {
	ctx := c.Request.Context()
	logger.Error(ctx, "internal error", internalErr)
	respond(c, http.StatusInternalServerError, CodeInternalError, "An internal error occurred. Please try again later.")
}
