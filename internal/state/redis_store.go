package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore guarda um JSON por usuário com TTL opcional
type RedisStore[T any] struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisStore cria o store; ttl zero não expira
func NewRedisStore[T any](client redis.Cmdable, prefix string, ttl time.Duration) *RedisStore[T] {
	return &RedisStore[T]{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore[T]) key(userID string) string {
	return fmt.Sprintf("%s:%s", s.prefix, userID)
}

func (s *RedisStore[T]) Get(ctx context.Context, userID string) (T, bool, error) {
	var v T
	data, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return v, false, nil
	}
	if err != nil {
		return v, false, fmt.Errorf("erro ao ler %s: %w", s.key(userID), err)
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, false, fmt.Errorf("erro ao decodificar %s: %w", s.key(userID), err)
	}
	return v, true, nil
}

func (s *RedisStore[T]) Set(ctx context.Context, userID string, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("erro ao serializar estado: %w", err)
	}
	if err := s.client.Set(ctx, s.key(userID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("erro ao gravar %s: %w", s.key(userID), err)
	}
	return nil
}

func (s *RedisStore[T]) Delete(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("erro ao remover %s: %w", s.key(userID), err)
	}
	return nil
}
