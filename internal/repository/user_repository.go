package repository

import (
	"context"

	"socialhub/internal/domain/user"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresUserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) Create(ctx context.Context, u *user.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return translate(conn(ctx, r.db).Create(u).Error)
}

func (r *PostgresUserRepository) GetUserByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	var u user.User
	err := conn(ctx, r.db).Where("id = ?", id).First(&u).Error
	if err != nil {
		return user.User{}, translate(err)
	}
	return u, nil
}
