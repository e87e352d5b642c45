package registry

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const presenceKey = "device:presence"

// RedisPresenceCache mirrors last-seen timestamps in a sorted set keyed by
// device id, score = unix milliseconds. ZADD GT only ever raises a score,
// so the mirror keeps the same monotonic-max discipline as the store's
// last_seen column without a read-modify-write.
type RedisPresenceCache struct {
	rdb *redis.Client
}

func NewRedisPresenceCache(rdb *redis.Client) *RedisPresenceCache {
	return &RedisPresenceCache{rdb: rdb}
}

func (c *RedisPresenceCache) Advance(ctx context.Context, id string, seenAt time.Time) error {
	return c.rdb.ZAddGT(ctx, presenceKey, redis.Z{
		Score:  float64(seenAt.UnixMilli()),
		Member: id,
	}).Err()
}

// LastSeen returns the mirrored timestamp; ok is false when the device
// has no entry.
func (c *RedisPresenceCache) LastSeen(ctx context.Context, id string) (time.Time, bool, error) {
	score, err := c.rdb.ZScore(ctx, presenceKey, id).Result()
	if err != nil {
		if err == redis.Nil {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	return time.UnixMilli(int64(score)).UTC(), true, nil
}
