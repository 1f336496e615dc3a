package services

import (
	"context"

	"socialhub/internal/domain/post"
	"socialhub/internal/domain/user"
	"socialhub/internal/redis"
	"socialhub/internal/repository"
	"socialhub/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserService reads users through an optional Redis cache.
type UserService struct {
	repo  repository.UserRepository
	cache *redis.CacheStore
	log   *logger.Logger
}

func NewUserService(repo repository.UserRepository, cache *redis.CacheStore, log *logger.Logger) *UserService {
	if log == nil {
		log = logger.NewNop()
	}
	return &UserService{repo: repo, cache: cache, log: log}
}

func (s *UserService) FindUserByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	if s.cache != nil {
		cached, err := s.cache.GetUser(ctx, id)
		if err != nil {
			s.log.With(ctx).Warn("user cache read failed", zap.Error(err))
		} else if cached != nil {
			return *cached, nil
		}
	}

	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return user.User{}, err
	}

	if s.cache != nil {
		if err := s.cache.SetUser(ctx, u); err != nil {
			s.log.With(ctx).Warn("user cache write failed", zap.Error(err))
		}
	}
	return u, nil
}

// PostService exposes the post lookups the chat core needs.
type PostService struct {
	repo repository.PostRepository
}

func NewPostService(repo repository.PostRepository) *PostService {
	return &PostService{repo: repo}
}

func (s *PostService) FindPostByID(ctx context.Context, id uuid.UUID) (post.Post, error) {
	return s.repo.GetPostByID(ctx, id)
}
