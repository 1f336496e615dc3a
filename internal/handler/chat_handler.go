package handler

import (
	"context"
	"net/http"

	"socialhub/internal/domain/chat"
	"socialhub/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ChatDirectory interface {
	FindOrCreate(ctx context.Context, userA, userB uuid.UUID) (chat.Chat, error)
	ListForUser(ctx context.Context, userID uuid.UUID, search string) ([]chat.Chat, error)
	GetByID(ctx context.Context, userID, chatID uuid.UUID) (chat.Chat, error)
}

type ChatHandler struct {
	chats ChatDirectory
}

func NewChatHandler(chats ChatDirectory) *ChatHandler {
	return &ChatHandler{chats: chats}
}

func (h *ChatHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	chats, err := h.chats.ListForUser(c.Request.Context(), userID, c.Query("query"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewChatResponses(chats, userID)))
}

func (h *ChatHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	chatID, err := parseUUID(c.Param("id"), "chat id")
	if err != nil {
		fail(c, err)
		return
	}
	ch, err := h.chats.GetByID(c.Request.Context(), userID, chatID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewChatResponse(ch, userID)))
}

// With returns the chat between the caller and :userId, creating it on first
// use.
func (h *ChatHandler) With(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	recipientID, err := parseUUID(c.Param("userId"), "user id")
	if err != nil {
		fail(c, err)
		return
	}
	ch, err := h.chats.FindOrCreate(c.Request.Context(), userID, recipientID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewChatResponse(ch, userID)))
}
