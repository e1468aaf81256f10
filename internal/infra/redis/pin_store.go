package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// PinStore reserves game PINs across instances so two servers never hand out
// the same join code. Keys expire on their own if an instance dies.
type PinStore struct {
	client *redis.Client
	owner  string
	ttl    time.Duration
}

func NewPinStore(client *redis.Client, owner string, ttl time.Duration) *PinStore {
	return &PinStore{client: client, owner: owner, ttl: ttl}
}

// Claim reports whether pin was free and is now owned by this instance.
func (s *PinStore) Claim(ctx context.Context, pin string) (bool, error) {
	return s.client.SetNX(ctx, s.key(pin), s.owner, s.ttl).Result()
}

// Release frees pin if this instance still owns it.
func (s *PinStore) Release(ctx context.Context, pin string) error {
	owner, err := s.client.Get(ctx, s.key(pin)).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	if owner != s.owner {
		return nil
	}
	return s.client.Del(ctx, s.key(pin)).Err()
}

// Owner returns the instance holding pin, if any.
func (s *PinStore) Owner(ctx context.Context, pin string) (string, bool, error) {
	owner, err := s.client.Get(ctx, s.key(pin)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return owner, true, nil
}

func (s *PinStore) key(pin string) string {
	return "quiz:pin:" + pin
}
