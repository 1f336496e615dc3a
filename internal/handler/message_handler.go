package handler

import (
	"context"
	"fmt"
	"net/http"

	"socialhub/internal/domain/chat"
	"socialhub/internal/domain/message"
	"socialhub/internal/metrics"
	"socialhub/internal/services"
	"socialhub/internal/transport/httpdto"
	socialhub_errors "socialhub/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type MessageStore interface {
	Send(ctx context.Context, authorID uuid.UUID, req services.SendRequest) ([]services.Delivery, error)
	EditMessage(ctx context.Context, messageID, authorID uuid.UUID, content string) (chat.Chat, message.Message, error)
	DeleteMessage(ctx context.Context, messageID, authorID uuid.UUID) (chat.Chat, message.Message, error)
}

type HistoryPager interface {
	Page(ctx context.Context, userID, chatID uuid.UUID, cursor *services.Cursor, limit int) (services.MessagePage, error)
}

// Publisher fans committed mutations out to connected members.
type Publisher interface {
	PublishDeliveries(deliveries []services.Delivery)
	PublishEdited(c chat.Chat, m message.Message)
	PublishDeleted(c chat.Chat, m message.Message)
}

type MessageHandler struct {
	messages  MessageStore
	history   HistoryPager
	publisher Publisher
	metrics   *metrics.Metrics
}

func NewMessageHandler(messages MessageStore, history HistoryPager, publisher Publisher, m *metrics.Metrics) *MessageHandler {
	return &MessageHandler{messages: messages, history: history, publisher: publisher, metrics: m}
}

// History serves GET /chats/:id/messages?cursor=&take=.
func (h *MessageHandler) History(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	chatID, err := parseUUID(c.Param("id"), "chat id")
	if err != nil {
		fail(c, err)
		return
	}
	take, err := parseInt(c.Query("take"), "take")
	if err != nil {
		fail(c, err)
		return
	}
	cursor, err := services.ParseCursor(c.Query("cursor"))
	if err != nil {
		fail(c, err)
		return
	}

	page, err := h.history.Page(c.Request.Context(), userID, chatID, cursor, take)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewMessagePageResponse(page)))
}

func (h *MessageHandler) Send(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req services.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, fmt.Errorf("invalid request: %w", socialhub_errors.ErrInvalidInput))
		return
	}

	deliveries, err := h.messages.Send(c.Request.Context(), userID, req)
	if err != nil {
		fail(c, err)
		return
	}
	for _, d := range deliveries {
		h.metrics.MessagePersisted(d.Message.Type)
	}
	h.publisher.PublishDeliveries(deliveries)

	out := make([]httpdto.DeliveryResponse, 0, len(deliveries))
	for _, d := range deliveries {
		out = append(out, httpdto.DeliveryResponse{
			Chat:    httpdto.NewChatResponse(d.Chat, userID),
			Message: httpdto.NewMessageResponse(d.Message),
		})
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(out))
}

func (h *MessageHandler) Edit(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	messageID, err := parseUUID(c.Param("id"), "message id")
	if err != nil {
		fail(c, err)
		return
	}
	var req httpdto.EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, fmt.Errorf("invalid request: %w", socialhub_errors.ErrInvalidInput))
		return
	}

	ch, msg, err := h.messages.EditMessage(c.Request.Context(), messageID, userID, req.Content)
	if err != nil {
		fail(c, err)
		return
	}
	h.publisher.PublishEdited(ch, msg)
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.DeliveryResponse{
		Chat:    httpdto.NewChatResponse(ch, userID),
		Message: httpdto.NewMessageResponse(msg),
	}))
}

func (h *MessageHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	messageID, err := parseUUID(c.Param("id"), "message id")
	if err != nil {
		fail(c, err)
		return
	}

	ch, msg, err := h.messages.DeleteMessage(c.Request.Context(), messageID, userID)
	if err != nil {
		fail(c, err)
		return
	}
	h.publisher.PublishDeleted(ch, msg)
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.DeliveryResponse{
		Chat:    httpdto.NewChatResponse(ch, userID),
		Message: httpdto.NewMessageResponse(msg),
	}))
}
