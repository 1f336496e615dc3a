package httpdto

import (
	"socialhub/internal/domain/user"

	"github.com/google/uuid"
)

type UserResponse struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Avatar string    `json:"avatar,omitempty"`
}

func NewUserResponse(u user.User) UserResponse {
	return UserResponse{ID: u.ID, Name: u.Name, Avatar: u.Avatar}
}

type PresenceResponse struct {
	UserID   uuid.UUID `json:"user_id"`
	IsOnline bool      `json:"is_online"`
	LastSeen *string   `json:"last_seen,omitempty"`
}
