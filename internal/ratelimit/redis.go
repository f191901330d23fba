package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Connect accepts either a redis:// url or a plain host:port address.
func Connect(redisUrl string) (*redis.Client, error) {
	if strings.HasPrefix(redisUrl, "redis://") || strings.HasPrefix(redisUrl, "rediss://") {
		opt, err := redis.ParseURL(redisUrl)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisUrl}), nil
}

// RedisStore keeps last-request timestamps as unix milliseconds with the
// cooldown as native TTL, so multi-process deployments share one view.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (time.Time, bool, error) {
	raw, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse timestamp: %w", err)
	}
	return time.UnixMilli(millis), true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, t time.Time, ttl time.Duration) error {
	return s.client.Set(ctx, key, strconv.FormatInt(t.UnixMilli(), 10), ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
