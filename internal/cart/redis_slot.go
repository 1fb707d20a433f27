package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/servicecart/pkg/redis"
)

// RedisSlot persists cart values as plain redis strings under the sc:cart namespace.
type RedisSlot struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSlot binds the slot to the client. A zero ttl keeps values forever.
func NewRedisSlot(client *redis.Client, ttl time.Duration) *RedisSlot {
	return &RedisSlot{client: client, ttl: ttl}
}

func (r *RedisSlot) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, r.client.CartKey(key))
	if errors.Is(err, redis.ErrNil) {
		return "", ErrSlotEmpty
	}
	if err != nil {
		return "", fmt.Errorf("redis get cart slot: %w", err)
	}
	return value, nil
}

func (r *RedisSlot) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.client.CartKey(key), value, r.ttl); err != nil {
		return fmt.Errorf("redis set cart slot: %w", err)
	}
	return nil
}
