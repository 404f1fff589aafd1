package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPresenceStore keeps one TTL key per online user. Heartbeats
// refresh the key; if a node dies without cleanup the key expires and
// the user reads as offline everywhere.
type RedisPresenceStore struct {
	rdb *redis.Client
}

func NewRedisPresenceStore(rdb *redis.Client) *RedisPresenceStore {
	return &RedisPresenceStore{rdb: rdb}
}

func presenceKey(userID string) string {
	return "presence:" + userID
}

func (p *RedisPresenceStore) Touch(ctx context.Context, userID string, ttl time.Duration) error {
	return p.rdb.Set(ctx, presenceKey(userID), time.Now().Unix(), ttl).Err()
}

func (p *RedisPresenceStore) IsOnline(ctx context.Context, userID string) (bool, error) {
	n, err := p.rdb.Exists(ctx, presenceKey(userID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (p *RedisPresenceStore) Clear(ctx context.Context, userID string) error {
	return p.rdb.Del(ctx, presenceKey(userID)).Err()
}
