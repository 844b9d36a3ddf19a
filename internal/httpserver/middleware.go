package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront-cart/internal/domain"
	"storefront-cart/internal/widget"
)

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		logger.Info("request completed", fields...)
	}
}

// errorStatus maps the domain error taxonomy onto HTTP statuses.
func errorStatus(err error) int {
	switch {
	case domain.IsValidation(err):
		return http.StatusUnprocessableEntity
	case domain.IsStaleCatalog(err), errors.Is(err, domain.ErrSuperseded):
		return http.StatusConflict
	case domain.IsTransport(err):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, widget.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := errorStatus(err)
	_ = c.Error(err)
	body := gin.H{"error": err.Error()}
	var v *domain.ValidationError
	if errors.As(err, &v) {
		body["error"] = v.Message
		if v.Field != "" {
			body["field"] = v.Field
		}
	}
	if status == http.StatusInternalServerError {
		body["error"] = "internal error"
	}
	c.AbortWithStatusJSON(status, body)
}
