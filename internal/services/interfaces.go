package services

import (
	"context"

	"socialhub/internal/domain/post"
	"socialhub/internal/domain/user"

	"github.com/google/uuid"
)

// UserFinder resolves users owned by the user-management service.
type UserFinder interface {
	FindUserByID(ctx context.Context, id uuid.UUID) (user.User, error)
}

// PostFinder resolves posts owned by the post service.
type PostFinder interface {
	FindPostByID(ctx context.Context, id uuid.UUID) (post.Post, error)
}

// TokenVerifier checks bearer tokens.
type TokenVerifier interface {
	Authenticate(ctx context.Context, token string) (user.User, error)
}
