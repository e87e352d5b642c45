package ingest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Dominicksam/SmartLiving/internal/models"

	"github.com/redis/go-redis/v9"
)

const lastReadingTTL = time.Hour

// RedisReadingCache stores the latest telemetry event per device under
// device:last:<id> with a TTL, so the API can serve current readings
// without touching the telemetry table.
type RedisReadingCache struct {
	rdb *redis.Client
}

func NewRedisReadingCache(rdb *redis.Client) *RedisReadingCache {
	return &RedisReadingCache{rdb: rdb}
}

func (c *RedisReadingCache) SetLastReading(ctx context.Context, ev models.TelemetryEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, "device:last:"+ev.DeviceID, payload, lastReadingTTL).Err()
}

// GetLastReading returns the cached latest event for a device, or nil
// when nothing is cached.
func (c *RedisReadingCache) GetLastReading(ctx context.Context, deviceID string) (*models.TelemetryEvent, error) {
	raw, err := c.rdb.Get(ctx, "device:last:"+deviceID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var ev models.TelemetryEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
