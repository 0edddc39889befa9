package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"wrkledger/pkg/platform/sentinel"
)

// Redis key prefix for consumed replay keys.
const consumedKeyPrefix = "presigned:consumed:"

// Store is a Redis-backed consumed-signature set for distributed
// deployments where multiple instances share replay state. Keys never
// expire: a consumed signature stays consumed.
type Store struct {
	client *redis.Client
}

// New constructs a Redis-backed consumed-signature store.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

// MarkConsumed records the replay key via SETNX so exactly one caller
// wins a concurrent race.
func (s *Store) MarkConsumed(ctx context.Context, key string) error {
	ok, err := s.client.SetNX(ctx, consumedKeyPrefix+key, "1", 0).Result()
	if err != nil {
		return fmt.Errorf("mark signature consumed: %w", err)
	}
	if !ok {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

func (s *Store) Unmark(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, consumedKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("unmark signature: %w", err)
	}
	return nil
}

func (s *Store) IsConsumed(ctx context.Context, key string) (bool, error) {
	_, err := s.client.Get(ctx, consumedKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check signature: %w", err)
	}
	return true, nil
}
