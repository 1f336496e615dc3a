package middleware

import (
	"socialhub/internal/services"
	"socialhub/internal/transport/httpdto"
	"socialhub/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandler renders the last error a handler attached with c.Error.
func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status := services.HTTPStatus(err)
		if status >= 500 && l != nil {
			l.With(c.Request.Context()).Error("request failed", zap.Error(err))
		}
		c.JSON(status, httpdto.NewErrorResponse(services.PublicMessage(err), services.ErrorCode(err)))
	}
}
