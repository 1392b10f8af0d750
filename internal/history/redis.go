package history

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisKey = "crashround:history"

// RedisBackend stores the crash log as a capped Redis list, newest at the tail.
type RedisBackend struct {
	rdb *redis.Client
	key string
}

func NewRedisBackend(rdb *redis.Client, key string) *RedisBackend {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisBackend{rdb: rdb, key: key}
}

func (r *RedisBackend) Load(ctx context.Context, limit int) ([]float64, error) {
	vals, err := r.rdb.LRange(ctx, r.key, int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", r.key, err)
	}
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing history entry %q: %w", v, err)
		}
		out = append(out, f)
	}
	return out, nil
}

func (r *RedisBackend) Append(ctx context.Context, multiplier float64, limit int) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, r.key, strconv.FormatFloat(multiplier, 'f', -1, 64))
		pipe.LTrim(ctx, r.key, int64(-limit), -1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("appending to %s: %w", r.key, err)
	}
	return nil
}

func (r *RedisBackend) Trim(ctx context.Context, limit int) error {
	if err := r.rdb.LTrim(ctx, r.key, int64(-limit), -1).Err(); err != nil {
		return fmt.Errorf("trimming %s: %w", r.key, err)
	}
	return nil
}
