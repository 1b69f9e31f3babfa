package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-meetings/internal/logger"

	"github.com/go-redis/redis/v8"
)

// NewRedisClient connects to Redis and checks the connection with a ping.
func NewRedisClient(addr, password string, db int, log *logger.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: 10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Error("REDIS", fmt.Sprintf("Failed to connect to Redis at %s: %v", addr, err))
		_ = client.Close()
		return nil, err
	}

	log.Info("REDIS", fmt.Sprintf("Connected to Redis at %s", addr))
	return client, nil
}

// RedisStore is a Store backed by Redis string keys. Expiry is Redis TTL.
type RedisStore struct {
	Client *redis.Client
	Prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{Client: client, Prefix: prefix}
}

func (s *RedisStore) key(k string) string {
	return s.Prefix + k
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	if s.Client == nil {
		return "", fmt.Errorf("redis client not initialized")
	}
	val, err := s.Client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get %s from Redis: %w", key, err)
	}
	return val, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if s.Client == nil {
		return fmt.Errorf("redis client not initialized")
	}
	if err := s.Client.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store %s in Redis: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, key string) error {
	if s.Client == nil {
		return fmt.Errorf("redis client not initialized")
	}
	if err := s.Client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete %s from Redis: %w", key, err)
	}
	return nil
}
