package redisad

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"playreviews/internal/domain"
)

// DefaultStateKey holds the whole sync state as one JSON document.
const DefaultStateKey = "reviews:sync_state"

// StateStore keeps the sync state in a single key with no expiry.
type StateStore struct {
	c   *redis.Client
	key string
}

func NewStateStore(c *redis.Client, key string) *StateStore {
	if key == "" {
		key = DefaultStateKey
	}
	return &StateStore{c: c, key: key}
}

func (s *StateStore) Load(ctx context.Context) (domain.State, error) {
	b, err := s.c.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return domain.State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	st := domain.State{}
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, fmt.Errorf("decode sync state: %w", err)
	}
	return st, nil
}

func (s *StateStore) Save(ctx context.Context, st domain.State) error {
	if st == nil {
		st = domain.State{}
	}
	b, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode sync state: %w", err)
	}
	return s.c.Set(ctx, s.key, b, 0).Err()
}
