package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"socialhub/internal/domain/chat"
	"socialhub/internal/domain/message"
	"socialhub/internal/domain/user"
	"socialhub/internal/repository"
	"socialhub/internal/testutil"

	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	users    *UserService
	posts    *PostService
	chats    *ChatService
	messages *MessageService
	history  *HistoryService
	clock    *fakeClock

	alice, bob, carol user.User
}

// fakeClock advances one millisecond per call unless frozen.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	frozen bool
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	if !c.frozen {
		c.now = c.now.Add(time.Millisecond)
	}
	return t
}

func (c *fakeClock) Freeze(frozen bool) {
	c.mu.Lock()
	c.frozen = frozen
	c.mu.Unlock()
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)

	userRepo := repository.NewUserRepository(db)
	chatRepo := repository.NewChatRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	f := &fixture{
		db:    db,
		users: NewUserService(userRepo, nil, nil),
		posts: NewPostService(repository.NewPostRepository(db)),
		clock: &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
	}
	f.chats = NewChatService(chatRepo, f.users)
	f.messages = NewMessageService(repository.NewTransactor(db), chatRepo, messageRepo, f.posts)
	f.messages.now = f.clock.Now
	f.history = NewHistoryService(chatRepo, messageRepo)

	f.alice = testutil.CreateUser(t, db, "Alice")
	f.bob = testutil.CreateUser(t, db, "Bob")
	f.carol = testutil.CreateUser(t, db, "Carol")
	return f
}

func (f *fixture) chat(t *testing.T, a, b user.User) chat.Chat {
	t.Helper()
	c, err := f.chats.FindOrCreate(context.Background(), a.ID, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func (f *fixture) countMessages(t *testing.T) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(&message.Message{}).Count(&n).Error; err != nil {
		t.Fatal(err)
	}
	return n
}

func ptr[T any](v T) *T { return &v }
