package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"socialhub/internal/domain/chat"
	"socialhub/internal/domain/message"
	"socialhub/internal/domain/post"
	"socialhub/internal/domain/user"
	"socialhub/internal/repository"
	"socialhub/internal/services"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SeedConfig holds configuration for seeding the database
type SeedConfig struct {
	UserNames       []string
	MessagesPerChat int
}

// DefaultSeedConfig returns default seed configuration
func DefaultSeedConfig() *SeedConfig {
	return &SeedConfig{
		UserNames:       []string{"Ada Lovelace", "Grace Hopper", "Alan Turing", "Edsger Dijkstra"},
		MessagesPerChat: 3,
	}
}

// SeedResult holds the result of the seeding operation
type SeedResult struct {
	Users    []user.User
	Posts    []post.Post
	Chats    []chat.Chat
	Messages []message.Message
}

// Seed fills a development database: users, one post by the first user,
// a chat between the first user and every other user, a few text messages
// per chat and a repost of the post into all of them.
func Seed(ctx context.Context, db *gorm.DB, cfg *SeedConfig) (*SeedResult, error) {
	if cfg == nil {
		cfg = DefaultSeedConfig()
	}
	if len(cfg.UserNames) < 2 {
		return nil, fmt.Errorf("seed needs at least two users, got %d", len(cfg.UserNames))
	}

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	chatRepo := repository.NewChatRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	users := services.NewUserService(userRepo, nil, nil)
	posts := services.NewPostService(postRepo)
	chats := services.NewChatService(chatRepo, users)
	messages := services.NewMessageService(repository.NewTransactor(db), chatRepo, messageRepo, posts)

	result := &SeedResult{}
	log.Println("Starting database seeding...")

	for i, name := range cfg.UserNames {
		u := user.User{
			ID:        uuid.New(),
			Name:      name,
			Avatar:    fmt.Sprintf("https://avatars.githubusercontent.com/u/%d", 1000+i),
			CreatedAt: time.Now().UTC(),
		}
		if err := userRepo.Create(ctx, &u); err != nil {
			return nil, fmt.Errorf("failed to seed user %q: %w", name, err)
		}
		result.Users = append(result.Users, u)
	}

	owner := result.Users[0]
	p := post.Post{
		ID:        uuid.New(),
		AuthorID:  owner.ID,
		Content:   "Hello from the seed data",
		CreatedAt: time.Now().UTC(),
		Images:    []post.Image{{ID: uuid.New(), URL: "https://picsum.photos/seed/socialhub/600/400"}},
	}
	if err := postRepo.Create(ctx, &p); err != nil {
		return nil, fmt.Errorf("failed to seed post: %w", err)
	}
	result.Posts = append(result.Posts, p)

	chatIDs := make([]uuid.UUID, 0, len(result.Users)-1)
	for _, other := range result.Users[1:] {
		c, err := chats.FindOrCreate(ctx, owner.ID, other.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to seed chat with %s: %w", other.Name, err)
		}
		chatIDs = append(chatIDs, c.ID)

		for n := 0; n < cfg.MessagesPerChat; n++ {
			author := owner
			if n%2 == 1 {
				author = other
			}
			_, m, err := messages.SendText(ctx, c.ID, author.ID, fmt.Sprintf("Message %d from %s", n+1, author.Name))
			if err != nil {
				return nil, fmt.Errorf("failed to seed message: %w", err)
			}
			result.Messages = append(result.Messages, m)
		}
	}

	caption := "Have a look"
	deliveries, err := messages.SendRepost(ctx, p.ID, owner.ID, chatIDs, &caption)
	if err != nil {
		return nil, fmt.Errorf("failed to seed repost: %w", err)
	}
	for _, d := range deliveries {
		result.Chats = append(result.Chats, d.Chat)
		result.Messages = append(result.Messages, d.Message)
	}

	log.Printf("Seeded %d users, %d chats, %d messages", len(result.Users), len(result.Chats), len(result.Messages))
	return result, nil
}
