package handler

import (
	"context"
	"net/http"
	"time"

	"socialhub/internal/redis"
	"socialhub/internal/services"
	"socialhub/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PresenceReader interface {
	GetPresence(ctx context.Context, userID string) (*redis.PresenceStatus, error)
}

type OnlineChecker interface {
	IsOnline(userID uuid.UUID) bool
}

// PresenceHandler reports whether a user is connected. The local registry
// answers for this instance; Redis, when configured, covers the others and
// remembers when the user was last seen.
type PresenceHandler struct {
	users    services.UserFinder
	local    OnlineChecker
	presence PresenceReader
}

func NewPresenceHandler(users services.UserFinder, local OnlineChecker, presence PresenceReader) *PresenceHandler {
	return &PresenceHandler{users: users, local: local, presence: presence}
}

func (h *PresenceHandler) Get(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}
	userID, err := parseUUID(c.Param("id"), "user id")
	if err != nil {
		fail(c, err)
		return
	}
	if _, err := h.users.FindUserByID(c.Request.Context(), userID); err != nil {
		fail(c, err)
		return
	}

	resp := httpdto.PresenceResponse{UserID: userID, IsOnline: h.local.IsOnline(userID)}
	if h.presence != nil {
		status, err := h.presence.GetPresence(c.Request.Context(), userID.String())
		if err != nil {
			fail(c, err)
			return
		}
		resp.IsOnline = resp.IsOnline || status.IsOnline
		if !status.LastSeen.IsZero() {
			seen := status.LastSeen.UTC().Format(time.RFC3339)
			resp.LastSeen = &seen
		}
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(resp))
}
