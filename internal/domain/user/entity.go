package user

import (
	"time"

	"github.com/google/uuid"
)

// User represents the users table. Owned by the user-management service;
// the chat core only reads it.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"created_at"`
}

func (User) TableName() string { return "users" }
