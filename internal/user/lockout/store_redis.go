package lockout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	failureKeyPrefix = "lockout:attempts:"
	// counterTTL bounds how long stale counters linger; the account lock
	// itself lives on the user row, not here.
	counterTTL = 24 * time.Hour
)

// RedisStore shares failure counters across instances.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) RecordFailure(ctx context.Context, identifier string) (int, error) {
	key := failureKeyPrefix + strings.ToLower(identifier)
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, counterTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("record login failure: %w", err)
	}
	return int(incr.Val()), nil
}

func (s *RedisStore) Clear(ctx context.Context, identifier string) error {
	key := failureKeyPrefix + strings.ToLower(identifier)
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("clear login failures: %w", err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
