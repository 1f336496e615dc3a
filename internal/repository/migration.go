package repository

import (
	"fmt"

	"socialhub/internal/domain/chat"
	"socialhub/internal/domain/message"
	"socialhub/internal/domain/post"
	"socialhub/internal/domain/user"

	"gorm.io/gorm"
)

// RegisterJoinTables tells GORM to use chat.Member for the chat_members
// join table. Must run before any chat query touches Members.
func RegisterJoinTables(db *gorm.DB) error {
	if err := db.SetupJoinTable(&chat.Chat{}, "Members", &chat.Member{}); err != nil {
		return fmt.Errorf("failed to setup chat_members join table: %w", err)
	}
	return nil
}

// InitSchema creates the schema from the models. Production databases are
// migrated with the SQL files in pkg/database/migrations; this is used for
// throwaway databases.
func InitSchema(db *gorm.DB) error {
	if err := RegisterJoinTables(db); err != nil {
		return err
	}

	models := []interface{}{
		&user.User{},
		&post.Post{},
		&post.Image{},
		&message.Message{},
		&chat.Chat{},
		&chat.Member{},
	}
	for _, m := range models {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("failed to auto-migrate %T: %w", m, err)
		}
	}
	return nil
}
