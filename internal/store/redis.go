package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Backend keeping each best score in a plain string key.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Load(ctx context.Context, key string) (int, bool, error) {
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt value at %s: %w", key, err)
	}
	return n, true, nil
}

var saveIfLowerScript = redis.NewScript(`
	local cur = redis.call("GET", KEYS[1])
	local n = tonumber(ARGV[1])
	if cur and tonumber(cur) <= n then
		return 0
	end
	redis.call("SET", KEYS[1], ARGV[1])
	return 1
`)

func (s *RedisStore) SaveIfLower(ctx context.Context, key string, attempts int) (bool, error) {
	res, err := saveIfLowerScript.Run(ctx, s.client, []string{key}, attempts).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

func (s *RedisStore) Clear(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *RedisStore) Close() error { return s.client.Close() }

// Ping checks the connection; used by the health endpoint.
func (s *RedisStore) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }
