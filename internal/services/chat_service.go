package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"socialhub/internal/domain/chat"
	"socialhub/internal/repository"
	socialhub_errors "socialhub/pkg/errors"

	"github.com/google/uuid"
)

// ChatService is the directory of direct chats between two users.
type ChatService struct {
	chats    repository.ChatRepository
	users    UserFinder
	imageURL func() string
}

func NewChatService(chats repository.ChatRepository, users UserFinder) *ChatService {
	return &ChatService{chats: chats, users: users, imageURL: randomChatImage}
}

func randomChatImage() string {
	return fmt.Sprintf("https://avatars.githubusercontent.com/u/%d?v=4", 100+rand.Intn(100000))
}

// FindOrCreate returns the chat between userA and userB, creating it when
// none exists. Argument order does not matter.
func (s *ChatService) FindOrCreate(ctx context.Context, userA, userB uuid.UUID) (chat.Chat, error) {
	if userA == userB {
		return chat.Chat{}, fmt.Errorf("cannot create a chat with yourself: %w", socialhub_errors.ErrInvalidInput)
	}

	key := chat.MemberKey(userA, userB)
	existing, err := s.chats.GetByMemberKey(ctx, key)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, socialhub_errors.ErrNotFound) {
		return chat.Chat{}, err
	}

	for _, id := range []uuid.UUID{userA, userB} {
		if _, err := s.users.FindUserByID(ctx, id); err != nil {
			return chat.Chat{}, fmt.Errorf("user %s: %w", id, err)
		}
	}

	c := &chat.Chat{ID: uuid.New(), MemberKey: key, ImageURL: s.imageURL()}
	err = s.chats.Create(ctx, c, []uuid.UUID{userA, userB})
	if errors.Is(err, socialhub_errors.ErrAlreadyExists) {
		// Lost the race against a concurrent create; the winner's row is
		// authoritative.
		return s.chats.GetByMemberKey(ctx, key)
	}
	if err != nil {
		return chat.Chat{}, err
	}
	return s.chats.GetByID(ctx, c.ID)
}

// ListForUser returns the user's chats, most recently active first. A
// non-empty search keeps only chats whose other member's name contains it.
func (s *ChatService) ListForUser(ctx context.Context, userID uuid.UUID, search string) ([]chat.Chat, error) {
	return s.chats.ListForUser(ctx, userID, search)
}

// GetByID returns the chat if userID is a member. A chat the user cannot see
// is reported as not found.
func (s *ChatService) GetByID(ctx context.Context, userID, chatID uuid.UUID) (chat.Chat, error) {
	c, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return chat.Chat{}, err
	}
	if !c.HasMember(userID) {
		return chat.Chat{}, socialhub_errors.ErrNotFound
	}
	return c, nil
}

// DisplayName is the chat's name as seen by viewerID.
func (s *ChatService) DisplayName(c chat.Chat, viewerID uuid.UUID) string {
	return c.DisplayName(viewerID)
}

// PartnerIDs returns every user sharing a chat with userID.
func (s *ChatService) PartnerIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return s.chats.PartnerIDs(ctx, userID)
}
