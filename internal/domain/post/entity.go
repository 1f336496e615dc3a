package post

import (
	"time"

	"socialhub/internal/domain/user"

	"github.com/google/uuid"
)

// Post represents the posts table
type Post struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	AuthorID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Content   string
	CreatedAt time.Time

	// Relationships
	Author user.User `gorm:"foreignKey:AuthorID"`
	Images []Image   `gorm:"foreignKey:PostID"`
}

func (Post) TableName() string { return "posts" }

// Image represents post_images
type Image struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	PostID uuid.UUID `gorm:"type:uuid;not null;index"`
	URL    string    `gorm:"not null"`
}

func (Image) TableName() string { return "post_images" }
