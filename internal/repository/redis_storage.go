package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/nikolayk812/coursecart/internal/port"
	"github.com/redis/go-redis/v9"
)

type redisStorage struct {
	client *redis.Client
	key    string
}

// NewRedisStorage keeps the cart under coursecart:<key> without expiry.
func NewRedisStorage(client *redis.Client, key string) (port.CartStorage, error) {
	if key == "" {
		return nil, fmt.Errorf("key is empty")
	}

	return &redisStorage{
		client: client,
		key:    redisKey(key),
	}, nil
}

func (s *redisStorage) Load(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("client.Get: %w", err)
	}

	return data, nil
}

func (s *redisStorage) Save(ctx context.Context, data []byte) error {
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("client.Set: %w", err)
	}

	return nil
}

func redisKey(key string) string {
	return fmt.Sprintf("coursecart:%s", key)
}
