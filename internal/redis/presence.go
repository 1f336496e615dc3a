package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// PresenceStatus represents a user's online status
type PresenceStatus struct {
	UserID      string    `json:"user_id"`
	IsOnline    bool      `json:"is_online"`
	LastSeen    time.Time `json:"last_seen"`
	Connections int       `json:"connections,omitempty"`
}

// PresenceStore handles presence tracking in Redis. Each API instance
// reports its own connection count per user; a user is online while any
// instance reports one.
type PresenceStore struct {
	client     *goredis.Client
	ttl        time.Duration
	instanceID string
}

// Redis key prefixes for presence
const (
	presenceKeyPrefix    = "presence:"           // JSON presence document per user
	presenceOnlineSet    = "presence:online"     // Set of online user IDs
	presenceHeartbeatKey = "presence:heartbeat:" // Sorted set for heartbeat timestamps
	presenceConnsPrefix  = "presence:conns:"     // Hash of instance ID -> connection count per user
)

const presenceTxRetries = 5

// NewPresenceStore returns a store reporting as instanceID. An empty
// instanceID gets a random one, which is enough for a single process.
func NewPresenceStore(client *goredis.Client, ttl time.Duration, instanceID string) *PresenceStore {
	if ttl == 0 {
		ttl = 10 * time.Minute
	}
	if instanceID == "" {
		instanceID = uuid.NewString()
	}
	return &PresenceStore{
		client:     client,
		ttl:        ttl,
		instanceID: instanceID,
	}
}

// SetOnline records that this instance holds connections for the user.
func (p *PresenceStore) SetOnline(ctx context.Context, userID string, connections int) error {
	return p.report(ctx, userID, connections)
}

// SetOffline records that this instance holds no connections for the user.
// The user stays online while another instance still reports some.
func (p *PresenceStore) SetOffline(ctx context.Context, userID string) error {
	return p.report(ctx, userID, 0)
}

// report stores this instance's count and rewrites the presence document
// from the total across instances. The conns hash is watched so concurrent
// reports from other instances retry instead of overwriting each other.
func (p *PresenceStore) report(ctx context.Context, userID string, connections int) error {
	key := presenceConnsPrefix + userID
	txf := func(tx *goredis.Tx) error {
		counts, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		total := connections
		for instance, raw := range counts {
			if instance == p.instanceID {
				continue
			}
			n, _ := strconv.Atoi(raw)
			total += n
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			if connections > 0 {
				pipe.HSet(ctx, key, p.instanceID, connections)
				pipe.Expire(ctx, key, p.ttl)
			} else {
				pipe.HDel(ctx, key, p.instanceID)
			}
			if total > 0 {
				return p.writeOnline(ctx, pipe, userID, total)
			}
			return p.writeOffline(ctx, pipe, userID)
		})
		return err
	}

	for i := 0; i < presenceTxRetries; i++ {
		err := p.client.Watch(ctx, txf, key)
		if !errors.Is(err, goredis.TxFailedErr) {
			return err
		}
	}
	return goredis.TxFailedErr
}

func (p *PresenceStore) writeOnline(ctx context.Context, pipe goredis.Pipeliner, userID string, connections int) error {
	now := time.Now().UTC()
	data, err := json.Marshal(PresenceStatus{
		UserID:      userID,
		IsOnline:    true,
		LastSeen:    now,
		Connections: connections,
	})
	if err != nil {
		return err
	}
	pipe.Set(ctx, presenceKeyPrefix+userID, data, p.ttl)
	pipe.SAdd(ctx, presenceOnlineSet, userID)
	pipe.ZAdd(ctx, presenceHeartbeatKey+"all", goredis.Z{
		Score:  float64(now.Unix()),
		Member: userID,
	})
	return nil
}

func (p *PresenceStore) writeOffline(ctx context.Context, pipe goredis.Pipeliner, userID string) error {
	data, err := json.Marshal(PresenceStatus{
		UserID:   userID,
		IsOnline: false,
		LastSeen: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	// Offline documents live longer so last_seen stays queryable.
	pipe.Set(ctx, presenceKeyPrefix+userID, data, 24*time.Hour)
	pipe.SRem(ctx, presenceOnlineSet, userID)
	pipe.ZRem(ctx, presenceHeartbeatKey+"all", userID)
	return nil
}

// forceOffline drops every instance's count for the user.
func (p *PresenceStore) forceOffline(ctx context.Context, userID string) error {
	_, err := p.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, presenceConnsPrefix+userID)
		return p.writeOffline(ctx, pipe, userID)
	})
	return err
}

// Heartbeat refreshes the user's presence TTL and heartbeat timestamp.
func (p *PresenceStore) Heartbeat(ctx context.Context, userID string) error {
	pipe := p.client.Pipeline()
	pipe.Expire(ctx, presenceKeyPrefix+userID, p.ttl)
	pipe.Expire(ctx, presenceConnsPrefix+userID, p.ttl)
	pipe.ZAdd(ctx, presenceHeartbeatKey+"all", goredis.Z{
		Score:  float64(time.Now().Unix()),
		Member: userID,
	})
	_, err := pipe.Exec(ctx)
	return err
}

// GetPresence gets the presence status of a user
func (p *PresenceStore) GetPresence(ctx context.Context, userID string) (*PresenceStatus, error) {
	data, err := p.client.Get(ctx, presenceKeyPrefix+userID).Result()
	if err == goredis.Nil {
		return &PresenceStatus{UserID: userID, IsOnline: false}, nil
	}
	if err != nil {
		return nil, err
	}

	var status PresenceStatus
	if err := json.Unmarshal([]byte(data), &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// GetOnlineCount returns the count of online users
func (p *PresenceStore) GetOnlineCount(ctx context.Context) (int64, error) {
	return p.client.SCard(ctx, presenceOnlineSet).Result()
}

// CleanupStalePresence marks offline every user whose last heartbeat is
// older than maxAge, whichever instances still report them. Users in keep
// are skipped and get a fresh heartbeat.
func (p *PresenceStore) CleanupStalePresence(ctx context.Context, maxAge time.Duration, keep func(userID string) bool) (int64, error) {
	threshold := time.Now().Add(-maxAge).Unix()

	staleUsers, err := p.client.ZRangeByScore(ctx, presenceHeartbeatKey+"all", &goredis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(threshold, 10),
	}).Result()
	if err != nil {
		return 0, err
	}

	var removed int64
	for _, userID := range staleUsers {
		if keep != nil && keep(userID) {
			if err := p.Heartbeat(ctx, userID); err != nil {
				return removed, err
			}
			continue
		}
		if err := p.forceOffline(ctx, userID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
