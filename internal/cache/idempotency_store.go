package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idempotencyPrefix = "civic:idem:"
	pendingMarker     = "pending"
	pendingTTL        = 2 * time.Minute
)

// ErrRequestInFlight is returned when another request holds the same key.
var ErrRequestInFlight = errors.New("request with this idempotency key is in progress")

// IdempotencyStore maps a caller's idempotency key to the complaint it created.
type IdempotencyStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewIdempotencyStore builds the store; ttl bounds how long a completed key is replayed.
func NewIdempotencyStore(client redis.Cmdable, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{client: client, ttl: ttl}
}

// Reserve claims key for owner. When the key already completed, the stored
// complaint id is returned with reserved=false.
func (s *IdempotencyStore) Reserve(ctx context.Context, owner, key string) (complaintID string, reserved bool, err error) {
	k := idempotencyKey(owner, key)
	ok, err := s.client.SetNX(ctx, k, pendingMarker, pendingTTL).Result()
	if err != nil {
		return "", false, err
	}
	if ok {
		return "", true, nil
	}

	existing, err := s.client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// expired between the two calls
		ok, err = s.client.SetNX(ctx, k, pendingMarker, pendingTTL).Result()
		return "", ok && err == nil, err
	}
	if err != nil {
		return "", false, err
	}
	if existing == pendingMarker {
		return "", false, ErrRequestInFlight
	}
	return existing, false, nil
}

// Complete records the complaint created under key.
func (s *IdempotencyStore) Complete(ctx context.Context, owner, key, complaintID string) error {
	return s.client.Set(ctx, idempotencyKey(owner, key), complaintID, s.ttl).Err()
}

// Release drops a reservation after a failed attempt so the caller may retry.
func (s *IdempotencyStore) Release(ctx context.Context, owner, key string) error {
	return s.client.Del(ctx, idempotencyKey(owner, key)).Err()
}

func idempotencyKey(owner, key string) string {
	return idempotencyPrefix + owner + ":" + key
}
