package testutil

import (
	"testing"
	"time"

	"socialhub/internal/domain/chat"
	"socialhub/internal/domain/post"
	"socialhub/internal/domain/user"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func CreateUser(t *testing.T, db *gorm.DB, name string) user.User {
	t.Helper()
	u := user.User{ID: uuid.New(), Name: name, Avatar: "https://example.com/" + name + ".png"}
	if err := db.Create(&u).Error; err != nil {
		t.Fatal(err)
	}
	return u
}

func CreatePost(t *testing.T, db *gorm.DB, authorID uuid.UUID, content string) post.Post {
	t.Helper()
	p := post.Post{
		ID:        uuid.New(),
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
		Images:    []post.Image{{ID: uuid.New(), URL: "https://example.com/image.png"}},
	}
	if err := db.Omit("Author").Create(&p).Error; err != nil {
		t.Fatal(err)
	}
	return p
}

// CreateChat inserts a chat between a and b directly, bypassing the service.
func CreateChat(t *testing.T, db *gorm.DB, a, b uuid.UUID) chat.Chat {
	t.Helper()
	c := chat.Chat{ID: uuid.New(), MemberKey: chat.MemberKey(a, b)}
	if err := db.Omit("Members", "LastMessage").Create(&c).Error; err != nil {
		t.Fatal(err)
	}
	members := []chat.Member{{ChatID: c.ID, UserID: a}, {ChatID: c.ID, UserID: b}}
	if err := db.Create(&members).Error; err != nil {
		t.Fatal(err)
	}
	return c
}
