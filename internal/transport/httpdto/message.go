package httpdto

import (
	"time"

	"socialhub/internal/domain/message"
	"socialhub/internal/domain/post"
	"socialhub/internal/services"

	"github.com/google/uuid"
)

type EditMessageRequest struct {
	Content string `json:"content"`
}

type PostResponse struct {
	ID        uuid.UUID    `json:"id"`
	Content   string       `json:"content"`
	Author    UserResponse `json:"author"`
	Images    []string     `json:"images"`
	CreatedAt time.Time    `json:"created_at"`
}

func NewPostResponse(p post.Post) PostResponse {
	images := make([]string, 0, len(p.Images))
	for _, img := range p.Images {
		images = append(images, img.URL)
	}
	return PostResponse{
		ID:        p.ID,
		Content:   p.Content,
		Author:    NewUserResponse(p.Author),
		Images:    images,
		CreatedAt: p.CreatedAt,
	}
}

type MessageResponse struct {
	ID        uuid.UUID     `json:"id"`
	ChatID    uuid.UUID     `json:"chat_id"`
	Type      string        `json:"type"`
	Content   *string       `json:"content"`
	PostID    *uuid.UUID    `json:"post_id,omitempty"`
	Post      *PostResponse `json:"post,omitempty"`
	Author    UserResponse  `json:"author"`
	Edited    bool          `json:"edited"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func NewMessageResponse(m message.Message) MessageResponse {
	resp := MessageResponse{
		ID:        m.ID,
		ChatID:    m.ChatID,
		Type:      m.Type,
		Author:    NewUserResponse(m.Author),
		Edited:    m.Edited,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	switch b := m.Body().(type) {
	case message.TextBody:
		content := b.Content
		resp.Content = &content
	case message.RepostBody:
		resp.Content = b.Caption
		if b.PostID != uuid.Nil {
			postID := b.PostID
			resp.PostID = &postID
		}
		if m.Post != nil {
			p := NewPostResponse(*m.Post)
			resp.Post = &p
		}
	}
	return resp
}

func NewMessageResponses(msgs []message.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, NewMessageResponse(m))
	}
	return out
}

type MessagePageResponse struct {
	Messages   []MessageResponse `json:"messages"`
	NextCursor *string           `json:"next_cursor"`
}

func NewMessagePageResponse(page services.MessagePage) MessagePageResponse {
	resp := MessagePageResponse{Messages: NewMessageResponses(page.Messages)}
	if page.NextCursor != nil {
		next := page.NextCursor.String()
		resp.NextCursor = &next
	}
	return resp
}
