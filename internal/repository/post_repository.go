package repository

import (
	"context"

	"socialhub/internal/domain/post"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresPostRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository {
	return &PostgresPostRepository{db: db}
}

func (r *PostgresPostRepository) Create(ctx context.Context, p *post.Post) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	for i := range p.Images {
		if p.Images[i].ID == uuid.Nil {
			p.Images[i].ID = uuid.New()
		}
	}
	return translate(conn(ctx, r.db).Omit("Author").Create(p).Error)
}

func (r *PostgresPostRepository) GetPostByID(ctx context.Context, id uuid.UUID) (post.Post, error) {
	var p post.Post
	err := conn(ctx, r.db).
		Preload("Author").
		Preload("Images").
		Where("id = ?", id).
		First(&p).Error
	if err != nil {
		return post.Post{}, translate(err)
	}
	return p, nil
}
