package repository

import (
	"context"
	"strings"
	"time"

	"socialhub/internal/domain/chat"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &PostgresChatRepository{db: db}
}

// withChatIncludes preloads what every chat payload carries: members and the
// last message with its author.
func withChatIncludes(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Members", func(db *gorm.DB) *gorm.DB {
			return db.Order("users.id")
		}).
		Preload("LastMessage").
		Preload("LastMessage.Author").
		Preload("LastMessage.Post")
}

func (r *PostgresChatRepository) Create(ctx context.Context, c *chat.Chat, memberIDs []uuid.UUID) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return translate(conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(c).Error; err != nil {
			return err
		}
		members := make([]chat.Member, 0, len(memberIDs))
		for _, id := range memberIDs {
			members = append(members, chat.Member{ChatID: c.ID, UserID: id})
		}
		return tx.Create(&members).Error
	}))
}

func (r *PostgresChatRepository) GetByID(ctx context.Context, id uuid.UUID) (chat.Chat, error) {
	var c chat.Chat
	err := withChatIncludes(conn(ctx, r.db)).Where("id = ?", id).First(&c).Error
	if err != nil {
		return chat.Chat{}, translate(err)
	}
	return c, nil
}

func (r *PostgresChatRepository) GetByMemberKey(ctx context.Context, key string) (chat.Chat, error) {
	var c chat.Chat
	err := withChatIncludes(conn(ctx, r.db)).Where("member_key = ?", key).First(&c).Error
	if err != nil {
		return chat.Chat{}, translate(err)
	}
	return c, nil
}

func (r *PostgresChatRepository) ListForUser(ctx context.Context, userID uuid.UUID, search string) ([]chat.Chat, error) {
	db := conn(ctx, r.db)

	mine := db.Model(&chat.Member{}).Select("chat_id").Where("user_id = ?", userID)
	q := db.Model(&chat.Chat{}).Where("id IN (?)", mine)

	if search = strings.TrimSpace(search); search != "" {
		matching := db.Table("chat_members AS cm").
			Select("cm.chat_id").
			Joins("JOIN users u ON u.id = cm.user_id").
			Where(`cm.user_id <> ? AND LOWER(u.name) LIKE ? ESCAPE '\'`, userID, "%"+escapeLike(strings.ToLower(search))+"%")
		q = q.Where("id IN (?)", matching)
	}

	var chats []chat.Chat
	err := withChatIncludes(q).
		Order("CASE WHEN last_activity_at IS NULL THEN 1 ELSE 0 END").
		Order("last_activity_at DESC").
		Order("created_at DESC").
		Find(&chats).Error
	if err != nil {
		return nil, err
	}
	return chats, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern escaped with '\'.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (r *PostgresChatRepository) IsMember(ctx context.Context, chatID, userID uuid.UUID) (bool, error) {
	var n int64
	err := conn(ctx, r.db).
		Model(&chat.Member{}).
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresChatRepository) CountMemberships(ctx context.Context, userID uuid.UUID, chatIDs []uuid.UUID) (int64, error) {
	if len(chatIDs) == 0 {
		return 0, nil
	}
	var n int64
	err := conn(ctx, r.db).
		Model(&chat.Member{}).
		Where("user_id = ? AND chat_id IN ?", userID, chatIDs).
		Count(&n).Error
	return n, err
}

func (r *PostgresChatRepository) PartnerIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var rows []struct {
		UserID uuid.UUID
	}
	err := conn(ctx, r.db).Raw(`
		SELECT DISTINCT other.user_id
		FROM chat_members AS mine
		JOIN chat_members AS other ON other.chat_id = mine.chat_id
		WHERE mine.user_id = ? AND other.user_id <> ?`, userID, userID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.UserID)
	}
	return ids, nil
}

func (r *PostgresChatRepository) SetLastMessage(ctx context.Context, chatID uuid.UUID, messageID *uuid.UUID, at *time.Time) error {
	updates := map[string]interface{}{
		"last_message_id":  nil,
		"last_activity_at": nil,
	}
	if messageID != nil && at != nil {
		updates["last_message_id"] = *messageID
		updates["last_activity_at"] = *at
	}
	res := conn(ctx, r.db).
		Model(&chat.Chat{}).
		Where("id = ?", chatID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound)
	}
	return nil
}
