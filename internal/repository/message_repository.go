package repository

import (
	"context"
	"time"

	"socialhub/internal/domain/message"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresMessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &PostgresMessageRepository{db: db}
}

func withMessageIncludes(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Post").
		Preload("Post.Author").
		Preload("Post.Images")
}

func (r *PostgresMessageRepository) Create(ctx context.Context, m *message.Message) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return translate(conn(ctx, r.db).Omit("Author", "Post").Create(m).Error)
}

func (r *PostgresMessageRepository) GetByID(ctx context.Context, id uuid.UUID) (message.Message, error) {
	var m message.Message
	err := withMessageIncludes(conn(ctx, r.db)).Where("id = ?", id).First(&m).Error
	if err != nil {
		return message.Message{}, translate(err)
	}
	return m, nil
}

func (r *PostgresMessageRepository) UpdateContent(ctx context.Context, id uuid.UUID, content *string, updatedAt time.Time) error {
	updates := map[string]interface{}{
		"content":    nil,
		"edited":     true,
		"updated_at": updatedAt,
	}
	if content != nil {
		updates["content"] = *content
	}
	res := conn(ctx, r.db).
		Model(&message.Message{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *PostgresMessageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := conn(ctx, r.db).Where("id = ?", id).Delete(&message.Message{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *PostgresMessageRepository) Latest(ctx context.Context, chatID uuid.UUID) (message.Message, error) {
	var m message.Message
	err := conn(ctx, r.db).
		Where("chat_id = ?", chatID).
		Order("created_at DESC").
		Order("id DESC").
		Take(&m).Error
	if err != nil {
		return message.Message{}, translate(err)
	}
	return m, nil
}

func (r *PostgresMessageRepository) ListBefore(ctx context.Context, chatID uuid.UUID, before *Keyset, limit int) ([]message.Message, error) {
	q := conn(ctx, r.db).Where("chat_id = ?", chatID)
	if before != nil {
		q = q.Where("(created_at < ? OR (created_at = ? AND id < ?))",
			before.CreatedAt, before.CreatedAt, before.ID)
	}

	var msgs []message.Message
	err := withMessageIncludes(q).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}
