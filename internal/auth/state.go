package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrStateUnknown is returned when a callback presents a state nonce that was
// never issued or was already consumed.
var ErrStateUnknown = errors.New("auth: unknown login state")

// StateStore issues single-use login state nonces backed by Redis.
type StateStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStateStore constructs a StateStore.
func NewStateStore(client *redis.Client, ttl time.Duration) *StateStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &StateStore{client: client, ttl: ttl}
}

// Issue creates and records a fresh state nonce.
func (s *StateStore) Issue(ctx context.Context) (string, error) {
	state := uuid.NewString()
	if err := s.client.Set(ctx, s.key(state), "1", s.ttl).Err(); err != nil {
		return "", err
	}
	return state, nil
}

// Consume verifies the nonce and removes it so it cannot be replayed.
func (s *StateStore) Consume(ctx context.Context, state string) error {
	if state == "" {
		return ErrStateUnknown
	}
	deleted, err := s.client.Del(ctx, s.key(state)).Result()
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrStateUnknown
	}
	return nil
}

func (s *StateStore) key(state string) string {
	return "login_state:" + state
}
