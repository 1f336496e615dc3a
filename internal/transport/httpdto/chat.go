package httpdto

import (
	"time"

	"socialhub/internal/domain/chat"

	"github.com/google/uuid"
)

type ChatResponse struct {
	ID             uuid.UUID        `json:"id"`
	Name           string           `json:"name,omitempty"`
	ImageURL       string           `json:"image_url,omitempty"`
	Members        []UserResponse   `json:"members"`
	LastMessage    *MessageResponse `json:"last_message"`
	LastActivityAt *time.Time       `json:"last_activity_at"`
	CreatedAt      time.Time        `json:"created_at"`
}

// NewChatResponse renders a chat. When viewerID is non-nil the name is the
// one that viewer sees; broadcast payloads pass uuid.Nil and carry no name.
func NewChatResponse(c chat.Chat, viewerID uuid.UUID) ChatResponse {
	members := make([]UserResponse, 0, len(c.Members))
	for _, m := range c.Members {
		members = append(members, NewUserResponse(m))
	}
	resp := ChatResponse{
		ID:             c.ID,
		ImageURL:       c.ImageURL,
		Members:        members,
		LastActivityAt: c.LastActivityAt,
		CreatedAt:      c.CreatedAt,
	}
	if viewerID != uuid.Nil {
		resp.Name = c.DisplayName(viewerID)
	}
	if c.LastMessage != nil {
		m := NewMessageResponse(*c.LastMessage)
		resp.LastMessage = &m
	}
	return resp
}

func NewChatResponses(chats []chat.Chat, viewerID uuid.UUID) []ChatResponse {
	out := make([]ChatResponse, 0, len(chats))
	for _, c := range chats {
		out = append(out, NewChatResponse(c, viewerID))
	}
	return out
}

// DeliveryResponse is the payload of message:delivered, message:edited and
// message:deleted.
type DeliveryResponse struct {
	Chat    ChatResponse    `json:"chat"`
	Message MessageResponse `json:"message"`
}
