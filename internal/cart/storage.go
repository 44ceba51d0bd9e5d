package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nvasquez/stagefront-backend/pkg/redis"
	"github.com/nvasquez/stagefront-backend/pkg/types"
)

// Storage is the durable slot the cart collection is persisted to. The full
// collection is written after every mutation and re-read on every hydrate.
type Storage interface {
	Load(ctx context.Context, owner string) ([]types.CartLine, error)
	Save(ctx context.Context, owner string, lines []types.CartLine) error
	Delete(ctx context.Context, owner string) error
}

type kvStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartKey(owner string) string
}

type redisStorage struct {
	kv kvStore
}

// NewRedisStorage persists carts as JSON under a fixed per-owner key.
func NewRedisStorage(client *redis.Client) (Storage, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &redisStorage{kv: client}, nil
}

func (s *redisStorage) Load(ctx context.Context, owner string) ([]types.CartLine, error) {
	payload, err := s.kv.Get(ctx, s.kv.CartKey(owner))
	if err != nil {
		if redis.IsMissing(err) {
			return nil, nil
		}
		return nil, err
	}

	var lines []types.CartLine
	if err := json.Unmarshal([]byte(payload), &lines); err != nil {
		// Corrupt payloads hydrate as an empty cart rather than failing the
		// caller; the slot is overwritten on the next mutation.
		return nil, nil
	}
	return lines, nil
}

func (s *redisStorage) Save(ctx context.Context, owner string, lines []types.CartLine) error {
	if len(lines) == 0 {
		return s.Delete(ctx, owner)
	}
	payload, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}
	return s.kv.Set(ctx, s.kv.CartKey(owner), string(payload), 0)
}

func (s *redisStorage) Delete(ctx context.Context, owner string) error {
	return s.kv.Del(ctx, s.kv.CartKey(owner))
}
