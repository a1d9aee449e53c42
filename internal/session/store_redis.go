package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const actorKeyPrefix = "fieldreg:actor:"

// RedisStore shares actors between server instances.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithTTL expires idle sessions. Zero keeps them until Clear.
func WithTTL(ttl time.Duration) RedisStoreOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

func NewRedisStore(client *redis.Client, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{client: client}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *RedisStore) Load(ctx context.Context, id string) (Actor, error) {
	raw, err := s.client.Get(ctx, actorKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Actor{}, ErrNoActor
	}
	if err != nil {
		return Actor{}, fmt.Errorf("load actor: %w", err)
	}
	var a Actor
	if err := json.Unmarshal(raw, &a); err != nil {
		return Actor{}, fmt.Errorf("decode actor: %w", err)
	}
	return a, nil
}

func (s *RedisStore) Save(ctx context.Context, id string, a Actor) error {
	if id == "" {
		return ErrEmptySessionID
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode actor: %w", err)
	}
	if err := s.client.Set(ctx, actorKeyPrefix+id, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save actor: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, actorKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("clear actor: %w", err)
	}
	return nil
}
