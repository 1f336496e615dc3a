package repository

import (
	"context"
	"time"

	"socialhub/internal/domain/chat"
	"socialhub/internal/domain/message"
	"socialhub/internal/domain/post"
	"socialhub/internal/domain/user"

	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, u *user.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (user.User, error)
}

type PostRepository interface {
	Create(ctx context.Context, p *post.Post) error
	GetPostByID(ctx context.Context, id uuid.UUID) (post.Post, error)
}

type ChatRepository interface {
	// Create inserts the chat and its member rows. A duplicate member key
	// yields ErrAlreadyExists.
	Create(ctx context.Context, c *chat.Chat, memberIDs []uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (chat.Chat, error)
	GetByMemberKey(ctx context.Context, key string) (chat.Chat, error)
	ListForUser(ctx context.Context, userID uuid.UUID, search string) ([]chat.Chat, error)

	IsMember(ctx context.Context, chatID, userID uuid.UUID) (bool, error)
	CountMemberships(ctx context.Context, userID uuid.UUID, chatIDs []uuid.UUID) (int64, error)
	PartnerIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)

	// SetLastMessage points the chat at a message; nil clears the pointer.
	SetLastMessage(ctx context.Context, chatID uuid.UUID, messageID *uuid.UUID, at *time.Time) error
}

// Keyset is an exclusive (created_at, id) bound on a descending scan.
type Keyset struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

type MessageRepository interface {
	Create(ctx context.Context, m *message.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (message.Message, error)
	UpdateContent(ctx context.Context, id uuid.UUID, content *string, updatedAt time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error

	// Latest returns the newest message of a chat by (created_at, id), or
	// ErrNotFound for an empty chat.
	Latest(ctx context.Context, chatID uuid.UUID) (message.Message, error)
	ListBefore(ctx context.Context, chatID uuid.UUID, before *Keyset, limit int) ([]message.Message, error)
}

// Transactor runs fn inside a single database transaction. Repositories
// called with the ctx passed to fn take part in that transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
