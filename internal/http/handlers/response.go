// Package handlers implements the gin handlers for the public API: chat and
// message endpoints plus the document analyze/list/delete surface.
//
// Every failure goes through fail(), which writes the common error envelope
// and logs server-side errors with the request-scoped logger. Success bodies
// go through ok()/noContent() so the response shape stays uniform.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pleader-ai/go-legal-backend/internal/http/middleware"
)

// ErrorResponse is the error envelope shared by all endpoints. RequestID is
// echoed from the X-Request-ID response header so a client error can be
// matched against server logs; Code is a stable machine-readable string from
// errors.go; Message is safe to display to users.
type ErrorResponse struct {
	RequestID string `json:"request_id,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// fail writes the error envelope for the given status and aborts the chain.
// 5xx responses are additionally logged with request context.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// Fail exposes fail() to the router package for NoRoute/NoMethod fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
