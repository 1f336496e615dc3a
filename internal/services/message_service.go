package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"socialhub/internal/domain/chat"
	"socialhub/internal/domain/message"
	"socialhub/internal/repository"
	socialhub_errors "socialhub/pkg/errors"

	"github.com/google/uuid"
)

// Delivery pairs a persisted message with the refreshed state of its chat.
type Delivery struct {
	Chat    chat.Chat
	Message message.Message
}

// MessageService persists messages and keeps each chat's last-message
// pointer in step with its history.
type MessageService struct {
	tx       repository.Transactor
	chats    repository.ChatRepository
	messages repository.MessageRepository
	posts    PostFinder
	now      func() time.Time
}

func NewMessageService(tx repository.Transactor, chats repository.ChatRepository, messages repository.MessageRepository, posts PostFinder) *MessageService {
	return &MessageService{
		tx:       tx,
		chats:    chats,
		messages: messages,
		posts:    posts,
		now:      nowUTC,
	}
}

// SendRequest is the tagged body of a send: "text" targets one chat_id,
// "post" reposts post_id to chat_ids with an optional caption.
type SendRequest struct {
	Type    string      `json:"type"`
	ChatID  uuid.UUID   `json:"chat_id"`
	ChatIDs []uuid.UUID `json:"chat_ids"`
	PostID  uuid.UUID   `json:"post_id"`
	Content *string     `json:"content"`
}

// Decode validates the discriminant and returns the body plus target chats.
func (r SendRequest) Decode() (message.Body, []uuid.UUID, error) {
	switch r.Type {
	case message.TypeText:
		if r.ChatID == uuid.Nil {
			return nil, nil, fmt.Errorf("chat_id is required: %w", socialhub_errors.ErrInvalidInput)
		}
		content := ""
		if r.Content != nil {
			content = *r.Content
		}
		return message.TextBody{Content: content}, []uuid.UUID{r.ChatID}, nil
	case message.TypePost:
		if r.PostID == uuid.Nil {
			return nil, nil, fmt.Errorf("post_id is required: %w", socialhub_errors.ErrInvalidInput)
		}
		targets := r.ChatIDs
		if len(targets) == 0 && r.ChatID != uuid.Nil {
			targets = []uuid.UUID{r.ChatID}
		}
		return message.RepostBody{PostID: r.PostID, Caption: r.Content}, targets, nil
	default:
		return nil, nil, fmt.Errorf("unknown message type %q: %w", r.Type, socialhub_errors.ErrInvalidInput)
	}
}

// Send dispatches a decoded request to SendText or SendRepost.
func (s *MessageService) Send(ctx context.Context, authorID uuid.UUID, req SendRequest) ([]Delivery, error) {
	body, targets, err := req.Decode()
	if err != nil {
		return nil, err
	}
	switch b := body.(type) {
	case message.TextBody:
		c, m, err := s.SendText(ctx, targets[0], authorID, b.Content)
		if err != nil {
			return nil, err
		}
		return []Delivery{{Chat: c, Message: m}}, nil
	case message.RepostBody:
		return s.SendRepost(ctx, b.PostID, authorID, targets, b.Caption)
	default:
		return nil, fmt.Errorf("unsupported body %T: %w", body, socialhub_errors.ErrInvalidInput)
	}
}

func (s *MessageService) SendText(ctx context.Context, chatID, authorID uuid.UUID, content string) (chat.Chat, message.Message, error) {
	if message.Blank(content) {
		return chat.Chat{}, message.Message{}, fmt.Errorf("content is empty: %w", socialhub_errors.ErrInvalidInput)
	}
	if err := s.requireMember(ctx, chatID, authorID); err != nil {
		return chat.Chat{}, message.Message{}, err
	}

	m := s.newMessage(chatID, authorID, message.TextBody{Content: content})
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.messages.Create(ctx, m); err != nil {
			return fmt.Errorf("create message: %w", err)
		}
		return s.recomputeLastMessage(ctx, chatID)
	})
	if err != nil {
		return chat.Chat{}, message.Message{}, err
	}
	return s.load(ctx, chatID, m.ID)
}

// SendRepost shares a post into every listed chat. The author must belong
// to all of them; otherwise nothing is written.
func (s *MessageService) SendRepost(ctx context.Context, postID, authorID uuid.UUID, chatIDs []uuid.UUID, caption *string) ([]Delivery, error) {
	targets := uniqueIDs(chatIDs)
	if len(targets) == 0 {
		return nil, fmt.Errorf("no chats to send to: %w", socialhub_errors.ErrInvalidInput)
	}
	if _, err := s.posts.FindPostByID(ctx, postID); err != nil {
		return nil, fmt.Errorf("post %s: %w", postID, err)
	}

	n, err := s.chats.CountMemberships(ctx, authorID, targets)
	if err != nil {
		return nil, err
	}
	if n != int64(len(targets)) {
		return nil, fmt.Errorf("not a member of every target chat: %w", socialhub_errors.ErrForbidden)
	}

	if caption != nil && message.Blank(*caption) {
		caption = nil
	}

	created := make([]*message.Message, 0, len(targets))
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		for _, chatID := range targets {
			m := s.newMessage(chatID, authorID, message.RepostBody{PostID: postID, Caption: caption})
			if err := s.messages.Create(ctx, m); err != nil {
				return fmt.Errorf("create repost: %w", err)
			}
			if err := s.recomputeLastMessage(ctx, chatID); err != nil {
				return err
			}
			created = append(created, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	deliveries := make([]Delivery, 0, len(created))
	for _, m := range created {
		c, loaded, err := s.load(ctx, m.ChatID, m.ID)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, Delivery{Chat: c, Message: loaded})
	}
	return deliveries, nil
}

// EditMessage replaces the text of a message (or the caption of a repost).
func (s *MessageService) EditMessage(ctx context.Context, messageID, authorID uuid.UUID, content string) (chat.Chat, message.Message, error) {
	m, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return chat.Chat{}, message.Message{}, err
	}
	if m.AuthorID != authorID {
		return chat.Chat{}, message.Message{}, socialhub_errors.ErrForbidden
	}

	var next *string
	switch m.Body().(type) {
	case message.TextBody:
		if message.Blank(content) {
			return chat.Chat{}, message.Message{}, fmt.Errorf("content is empty: %w", socialhub_errors.ErrInvalidInput)
		}
		next = &content
	case message.RepostBody:
		if !message.Blank(content) {
			next = &content
		}
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.messages.UpdateContent(ctx, m.ID, next, s.now()); err != nil {
			return fmt.Errorf("update message: %w", err)
		}
		return s.recomputeLastMessage(ctx, m.ChatID)
	})
	if err != nil {
		return chat.Chat{}, message.Message{}, err
	}
	return s.load(ctx, m.ChatID, m.ID)
}

// DeleteMessage removes a message and returns the chat together with the
// message as it was before deletion.
func (s *MessageService) DeleteMessage(ctx context.Context, messageID, authorID uuid.UUID) (chat.Chat, message.Message, error) {
	snapshot, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return chat.Chat{}, message.Message{}, err
	}
	if snapshot.AuthorID != authorID {
		return chat.Chat{}, message.Message{}, socialhub_errors.ErrForbidden
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.messages.Delete(ctx, snapshot.ID); err != nil {
			return fmt.Errorf("delete message: %w", err)
		}
		return s.recomputeLastMessage(ctx, snapshot.ChatID)
	})
	if err != nil {
		return chat.Chat{}, message.Message{}, err
	}

	c, err := s.chats.GetByID(ctx, snapshot.ChatID)
	if err != nil {
		return chat.Chat{}, message.Message{}, err
	}
	return c, snapshot, nil
}

// recomputeLastMessage points the chat at its newest message by
// (created_at, id), or clears the pointer when the chat is empty. It is the
// only writer of last_message_id and last_activity_at.
func (s *MessageService) recomputeLastMessage(ctx context.Context, chatID uuid.UUID) error {
	latest, err := s.messages.Latest(ctx, chatID)
	if errors.Is(err, socialhub_errors.ErrNotFound) {
		return s.chats.SetLastMessage(ctx, chatID, nil, nil)
	}
	if err != nil {
		return fmt.Errorf("latest message: %w", err)
	}
	return s.chats.SetLastMessage(ctx, chatID, &latest.ID, &latest.CreatedAt)
}

func (s *MessageService) requireMember(ctx context.Context, chatID, userID uuid.UUID) error {
	ok, err := s.chats.IsMember(ctx, chatID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return socialhub_errors.ErrNotFound
	}
	return nil
}

func (s *MessageService) newMessage(chatID, authorID uuid.UUID, body message.Body) *message.Message {
	now := s.now()
	m := &message.Message{
		ID:        uuid.New(),
		ChatID:    chatID,
		AuthorID:  authorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.Apply(body)
	return m
}

func (s *MessageService) load(ctx context.Context, chatID, messageID uuid.UUID) (chat.Chat, message.Message, error) {
	c, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return chat.Chat{}, message.Message{}, err
	}
	m, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return chat.Chat{}, message.Message{}, err
	}
	return c, m, nil
}

// nowUTC truncates to the precision Postgres keeps for timestamptz so that
// cursors built from returned rows match stored values exactly.
func nowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
