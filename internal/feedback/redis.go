package feedback

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zulandar/nudgeyard/internal/nudge"
)

// RedisStore keeps each (user, category) score list in a Redis list, newest
// at the head, trimmed to the limit on every append.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRedisStore wraps an existing client. prefix namespaces the keys.
func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "nudgeyard"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

// DialRedis connects to addr and pings it.
func DialRedis(ctx context.Context, addr, prefix string) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("feedback: redis ping %s: %w", addr, err)
	}
	return NewRedisStore(rdb, prefix), nil
}

func (r *RedisStore) key(userID string, c nudge.Category) string {
	return fmt.Sprintf("%s:feedback:%s:%s", r.prefix, userID, c)
}

func (r *RedisStore) Append(ctx context.Context, userID string, c nudge.Category, score float64, limit int) error {
	k := r.key(userID, c)
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LPush(ctx, k, strconv.FormatFloat(score, 'f', -1, 64))
		p.LTrim(ctx, k, 0, int64(limit-1))
		return nil
	})
	return err
}

func (r *RedisStore) Scores(ctx context.Context, userID string, c nudge.Category) ([]float64, error) {
	raw, err := r.rdb.LRange(ctx, r.key(userID, c), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(raw))
	for _, v := range raw {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("parse score %q: %w", v, err)
		}
		out = append(out, f)
	}
	return out, nil
}

func (r *RedisStore) Close() error { return r.rdb.Close() }
