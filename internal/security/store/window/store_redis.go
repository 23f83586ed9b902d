package window

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "amlguard:security:failures:"

// RedisWindow stores failures in one sorted set per IP, scored by the
// failure time in microseconds.
type RedisWindow struct {
	client    redis.UniversalClient
	retention time.Duration
}

func NewRedis(client redis.UniversalClient, retention time.Duration) *RedisWindow {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &RedisWindow{client: client, retention: retention}
}

func (w *RedisWindow) Record(ctx context.Context, ip string, at time.Time) error {
	key := keyPrefix + ip
	pipe := w.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  score(at),
		Member: uuid.NewString(),
	})
	pipe.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(at.Add(-w.retention).UnixMicro(), 10))
	pipe.Expire(ctx, key, w.retention)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record failure for %s: %w", ip, err)
	}
	return nil
}

func (w *RedisWindow) Count(ctx context.Context, ip string, from, to time.Time) (int, error) {
	n, err := w.client.ZCount(ctx, keyPrefix+ip,
		strconv.FormatInt(from.UnixMicro(), 10),
		strconv.FormatInt(to.UnixMicro(), 10),
	).Result()
	if err != nil {
		return 0, fmt.Errorf("count failures for %s: %w", ip, err)
	}
	return int(n), nil
}

func score(t time.Time) float64 {
	return float64(t.UnixMicro())
}
