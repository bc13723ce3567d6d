// Package api provides the HTTP admin surface.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mxteam/mediabot/internal/domain"
)

// ErrorRenderer maps domain errors onto HTTP responses. Details and causes are
// logged server-side; the client sees only type, code and message.
type ErrorRenderer struct {
	logger *slog.Logger
}

// NewErrorRenderer creates an error renderer.
func NewErrorRenderer(logger *slog.Logger) *ErrorRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorRenderer{logger: logger}
}

// Render writes the error response and aborts the request.
func (r *ErrorRenderer) Render(c *gin.Context, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		r.logger.Error("unhandled error",
			"method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"type":    string(domain.InternalError),
				"code":    "INTERNAL_ERROR",
				"message": "An internal error occurred",
			},
		})
		return
	}

	r.logger.Warn("request failed",
		"method", c.Request.Method, "path", c.Request.URL.Path,
		"error_type", string(de.Type), "error_code", de.Code, "error", de)

	c.AbortWithStatusJSON(statusForType(de.Type), gin.H{
		"success": false,
		"error": gin.H{
			"type":    string(de.Type),
			"code":    de.Code,
			"message": de.Message,
		},
	})
}

func statusForType(t domain.ErrorType) int {
	switch t {
	case domain.ValidationError:
		return http.StatusBadRequest
	case domain.AuthenticationError:
		return http.StatusUnauthorized
	case domain.NotFoundError:
		return http.StatusNotFound
	case domain.ConflictError:
		return http.StatusConflict
	case domain.PolicyError:
		return http.StatusUnprocessableEntity
	case domain.RateLimitError:
		return http.StatusTooManyRequests
	case domain.ExternalServiceError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
