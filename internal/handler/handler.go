package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"socialhub/internal/services"
	"socialhub/internal/transport/httpdto"
	socialhub_errors "socialhub/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// fail answers with the status and code mapped from err. Internal failures
// are attached to the context for ErrorHandler to log.
func fail(c *gin.Context, err error) {
	status := services.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, httpdto.NewErrorResponse(services.PublicMessage(err), services.ErrorCode(err)))
}

func currentUser(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
	}
	return userID, ok
}

func parseUUID(value, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", field, socialhub_errors.ErrInvalidInput)
	}
	return id, nil
}

func parseInt(value, field string) (int, error) {
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", field, socialhub_errors.ErrInvalidInput)
	}
	return parsed, nil
}
