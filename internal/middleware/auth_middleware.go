package middleware

import (
	"context"
	"net/http"

	"socialhub/internal/domain/user"
	"socialhub/internal/services"
	"socialhub/internal/transport/httpdto"
	"socialhub/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Authenticator resolves a bearer token to a known user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (user.User, error)
}

func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := services.BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
			c.Abort()
			return
		}

		u, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			c.JSON(services.HTTPStatus(err), httpdto.NewErrorResponse(services.PublicMessage(err), services.ErrorCode(err)))
			c.Abort()
			return
		}

		ctx := services.WithUserContext(c.Request.Context(), u.ID)
		ctx = context.WithValue(ctx, logger.UserIdKey, u.ID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
