package services

import (
	"context"

	"socialhub/internal/domain/message"
	"socialhub/internal/repository"
	socialhub_errors "socialhub/pkg/errors"

	"github.com/google/uuid"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 50
)

// MessagePage is one page of history, newest first. NextCursor is nil on
// the last page.
type MessagePage struct {
	Messages   []message.Message
	NextCursor *Cursor
}

// HistoryService pages through a chat's messages by keyset.
type HistoryService struct {
	chats    repository.ChatRepository
	messages repository.MessageRepository
}

func NewHistoryService(chats repository.ChatRepository, messages repository.MessageRepository) *HistoryService {
	return &HistoryService{chats: chats, messages: messages}
}

// ClampLimit applies the default and maximum page sizes.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultPageSize
	case limit > MaxPageSize:
		return MaxPageSize
	default:
		return limit
	}
}

func (s *HistoryService) Page(ctx context.Context, userID, chatID uuid.UUID, cursor *Cursor, limit int) (MessagePage, error) {
	ok, err := s.chats.IsMember(ctx, chatID, userID)
	if err != nil {
		return MessagePage{}, err
	}
	if !ok {
		return MessagePage{}, socialhub_errors.ErrNotFound
	}

	limit = ClampLimit(limit)
	var before *repository.Keyset
	if cursor != nil {
		before = &repository.Keyset{CreatedAt: cursor.CreatedAt, ID: cursor.ID}
	}

	rows, err := s.messages.ListBefore(ctx, chatID, before, limit+1)
	if err != nil {
		return MessagePage{}, err
	}

	page := MessagePage{Messages: rows}
	if len(rows) > limit {
		page.Messages = rows[:limit]
		last := page.Messages[limit-1]
		page.NextCursor = &Cursor{CreatedAt: last.CreatedAt.UTC(), ID: last.ID}
	}
	if page.Messages == nil {
		page.Messages = []message.Message{}
	}
	return page, nil
}
