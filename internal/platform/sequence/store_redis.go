package sequence

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// seedScript raises a counter without ever lowering it.
var seedScript = redis.NewScript(`
local cur = tonumber(redis.call("GET", KEYS[1]) or "0")
local want = tonumber(ARGV[1])
if want > cur then
  redis.call("SET", KEYS[1], ARGV[1])
end
return 0
`)

// RedisStore keeps counters as Redis integers advanced with INCR, which is
// atomic across every process sharing the server.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// NewRedisClient builds a client from a redis:// URL.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}

func (s *RedisStore) Next(ctx context.Context, key string) (int64, error) {
	if key == "" {
		return 0, fmt.Errorf("sequence key is required")
	}
	v, err := s.client.Incr(ctx, s.key(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("incr %s: %w", key, err)
	}
	return v, nil
}

func (s *RedisStore) Seed(ctx context.Context, key string, value int64) error {
	if err := seedScript.Run(ctx, s.client, []string{s.key(key)}, value).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("seed %s: %w", key, err)
	}
	return nil
}
