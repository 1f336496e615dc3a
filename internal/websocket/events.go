package websocket

import (
	"encoding/json"

	"socialhub/internal/services"

	"github.com/google/uuid"
)

// Client to server events.
const (
	EventMessageSend   = "message:send"
	EventMessageEdit   = "message:edit"
	EventMessageDelete = "message:delete"
	EventHistoryPage   = "history:page"
	EventChatList      = "chat:list"
	EventChatGet       = "chat:get"
	EventChatOpen      = "chat:open"
	EventPing          = "ping"
)

// Server to client events.
const (
	EventMessageDelivered = "message:delivered"
	EventMessageEdited    = "message:edited"
	EventMessageDeleted   = "message:deleted"
	EventUserOnline       = "user:online"
	EventUserOffline      = "user:offline"
	EventError            = "error"
	EventPong             = "pong"
	EventAck              = "ack"
)

// InboundFrame is a client frame. Data is decoded per event.
type InboundFrame struct {
	Event     string          `json:"event"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// OutboundFrame is a server frame.
type OutboundFrame struct {
	Event     string      `json:"event"`
	RequestID string      `json:"request_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

type ErrorPayload struct {
	Reason string `json:"reason"`
	Code   string `json:"code"`
}

type PresencePayload struct {
	UserID uuid.UUID `json:"user_id"`
}

type EditMessagePayload struct {
	MessageID uuid.UUID `json:"message_id"`
	Content   string    `json:"content"`
}

type DeleteMessagePayload struct {
	MessageID uuid.UUID `json:"message_id"`
}

type HistoryPagePayload struct {
	ChatID uuid.UUID `json:"chat_id"`
	Cursor string    `json:"cursor"`
	Limit  int       `json:"limit"`
}

type ChatListPayload struct {
	Query string `json:"query"`
}

type ChatGetPayload struct {
	ChatID uuid.UUID `json:"chat_id"`
}

type ChatOpenPayload struct {
	RecipientID uuid.UUID `json:"recipient_id"`
}

// SendMessagePayload is the tagged body of message:send.
type SendMessagePayload = services.SendRequest

// SendAck acknowledges a mutation to the connection that requested it.
type SendAck struct {
	MessageIDs []uuid.UUID `json:"message_ids"`
}
