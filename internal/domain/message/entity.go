package message

import (
	"time"

	"socialhub/internal/domain/post"
	"socialhub/internal/domain/user"

	"github.com/google/uuid"
)

const (
	TypeText = "text"
	TypePost = "post"
)

// Message represents the messages table. A repost to N chats is N rows.
type Message struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ChatID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_messages_chat_created,priority:1"`
	AuthorID  uuid.UUID  `gorm:"type:uuid;not null"`
	Type      string     `gorm:"not null"`
	Content   *string    // text body or repost caption
	PostID    *uuid.UUID `gorm:"type:uuid"`
	Edited    bool       `gorm:"not null;default:false"`
	CreatedAt time.Time  `gorm:"not null;index:idx_messages_chat_created,priority:2"`
	UpdatedAt time.Time

	// Relationships
	Author user.User  `gorm:"foreignKey:AuthorID"`
	Post   *post.Post `gorm:"foreignKey:PostID;constraint:OnDelete:SET NULL"`
}

func (Message) TableName() string { return "messages" }

// Body decodes the stored columns back into the message body. A repost
// whose post has since been removed keeps its type with a zero PostID.
func (m Message) Body() Body {
	if m.Type == TypePost {
		var postID uuid.UUID
		if m.PostID != nil {
			postID = *m.PostID
		}
		return RepostBody{PostID: postID, Caption: m.Content}
	}
	content := ""
	if m.Content != nil {
		content = *m.Content
	}
	return TextBody{Content: content}
}

// Before reports whether m sorts strictly before (older than) other in
// (created_at, id) order.
func (m Message) Before(other Message) bool {
	if !m.CreatedAt.Equal(other.CreatedAt) {
		return m.CreatedAt.Before(other.CreatedAt)
	}
	return m.ID.String() < other.ID.String()
}
