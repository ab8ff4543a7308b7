// Package redis_store backs the Store and Bus interfaces from
// https://github.com/tgavankar/kitsune-chat  with a shared Redis instance,
// through https://github.com/redis/go-redis.
//
// Since both the key-value store and the pub/sub bus are shared, several
// relay processes pointed at the same Redis instance behave as one chat:
// identities bound by one process resolve on any other, and every payload
// published by any process fans out to every connected client.
package redis_store

import (
    kitsune "github.com/tgavankar/kitsune-chat"
    "github.com/redis/go-redis/v9"

    "context"
    "time"
)

// Store implement `kitsune.Store` over a Redis client.
//
// Each operation maps onto exactly one Redis command (`GET`, `SET`,
// `SET ... EX` and `DEL`), relying on Redis's per-command atomicity.
type Store struct {
    // The underlying Redis client.
    client *redis.Client
}

// Get the value associated with `key`.
//
// A missing key is reported as `kitsune.NotFound`, so the caller may tell
// it apart from Redis being unreachable.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
    val, err := s.client.Get(ctx, key).Result()
    if err == redis.Nil {
        return "", kitsune.NotFound
    } else if err != nil {
        return "", err
    }

    return val, nil
}

// Set `key` to `value`, with no expiration.
func (s *Store) Set(ctx context.Context, key, value string) error {
    return s.client.Set(ctx, key, value, 0).Err()
}

// SetEx set `key` to `value` and let Redis itself evict the key after
// `ttl`.
func (s *Store) SetEx(ctx context.Context, key, value string,
        ttl time.Duration) error {

    return s.client.Set(ctx, key, value, ttl).Err()
}

// Del remove `key`. Deleting an absent key is not an error.
func (s *Store) Del(ctx context.Context, key string) error {
    return s.client.Del(ctx, key).Err()
}

// NewStore create a `kitsune.Store` over the supplied Redis client.
func NewStore(client *redis.Client) *Store {
    return &Store {
        client: client,
    }
}
