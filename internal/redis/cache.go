package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"socialhub/internal/domain/user"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// Cache key patterns:
// - user:{user_id} - 5m TTL, profile cache

// CacheConfig contains configuration for caching
type CacheConfig struct {
	UserTTL time.Duration
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{UserTTL: 5 * time.Minute}
}

// CacheStore handles caching in Redis
type CacheStore struct {
	client *goredis.Client
	config CacheConfig
}

func NewCacheStore(client *goredis.Client, config CacheConfig) *CacheStore {
	return &CacheStore{
		client: client,
		config: config,
	}
}

// UserCache is the cached projection of a user.
type UserCache struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Avatar string    `json:"avatar,omitempty"`
}

func userKey(userID uuid.UUID) string {
	return fmt.Sprintf("user:%s", userID.String())
}

// GetUser retrieves a user from cache. A miss returns (nil, nil).
func (c *CacheStore) GetUser(ctx context.Context, userID uuid.UUID) (*user.User, error) {
	data, err := c.client.Get(ctx, userKey(userID)).Result()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cached UserCache
	if err := json.Unmarshal([]byte(data), &cached); err != nil {
		return nil, err
	}
	return &user.User{ID: cached.ID, Name: cached.Name, Avatar: cached.Avatar}, nil
}

// SetUser stores a user in cache
func (c *CacheStore) SetUser(ctx context.Context, u user.User) error {
	data, err := json.Marshal(UserCache{ID: u.ID, Name: u.Name, Avatar: u.Avatar})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, userKey(u.ID), data, c.config.UserTTL).Err()
}

// InvalidateUser removes a user from cache
func (c *CacheStore) InvalidateUser(ctx context.Context, userID uuid.UUID) error {
	return c.client.Del(ctx, userKey(userID)).Err()
}
