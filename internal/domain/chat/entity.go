package chat

import (
	"strings"
	"time"

	"socialhub/internal/domain/message"
	"socialhub/internal/domain/user"

	"github.com/google/uuid"
)

// Chat represents the chats table: a direct thread between two users.
type Chat struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey"`
	MemberKey      string     `gorm:"not null;uniqueIndex"`
	ImageURL       string
	LastMessageID  *uuid.UUID `gorm:"type:uuid"`
	LastActivityAt *time.Time `gorm:"index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	// Relationships
	Members     []user.User      `gorm:"many2many:chat_members"`
	LastMessage *message.Message `gorm:"foreignKey:LastMessageID;constraint:OnDelete:SET NULL"`
}

func (Chat) TableName() string { return "chats" }

// Member represents chat_members
type Member struct {
	ChatID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID uuid.UUID `gorm:"type:uuid;primaryKey;index"`
}

func (Member) TableName() string { return "chat_members" }

// MemberKey is the normalized form of an unordered user pair.
func MemberKey(a, b uuid.UUID) string {
	as, bs := a.String(), b.String()
	if bs < as {
		as, bs = bs, as
	}
	return as + ":" + bs
}

// HasMember reports whether userID is among the loaded members.
func (c Chat) HasMember(userID uuid.UUID) bool {
	for _, m := range c.Members {
		if m.ID == userID {
			return true
		}
	}
	return false
}

// MemberIDs returns the ids of the loaded members.
func (c Chat) MemberIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(c.Members))
	for _, m := range c.Members {
		ids = append(ids, m.ID)
	}
	return ids
}

// DisplayName is the chat's name as seen by viewerID: the other members'
// names joined by ", ".
func (c Chat) DisplayName(viewerID uuid.UUID) string {
	names := make([]string, 0, len(c.Members))
	for _, m := range c.Members {
		if m.ID != viewerID {
			names = append(names, m.Name)
		}
	}
	return strings.Join(names, ", ")
}
