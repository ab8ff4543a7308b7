package kitsune_chat

import (
    "context"
    "sync"
    "time"
)

// Store is a generic interface for the shared key-value store backing the
// identity registry.
//
// Each operation maps directly onto one primitive of the store's wire
// contract (`GET`, `SET`, `SET ... EX` and `DEL`) and is individually
// atomic. No operation sequence built on top of a `Store` is transactional.
type Store interface {
    // Get the value associated with `key`.
    //
    // A missing key is reported as `NotFound`, so the caller may tell it
    // apart from the store being unreachable.
    Get(ctx context.Context, key string) (string, error)

    // Set `key` to `value`, with no expiration.
    Set(ctx context.Context, key, value string) error

    // SetEx set `key` to `value` and let the store itself evict the key
    // after `ttl`.
    SetEx(ctx context.Context, key, value string, ttl time.Duration) error

    // Del remove `key`. Deleting an absent key is not an error.
    Del(ctx context.Context, key string) error
}

// memEntry is a value stored in a `MemStore`, alongside its deadline.
type memEntry struct {
    // The stored value.
    value string

    // When the entry expires. The zero time means that the entry never
    // expires.
    deadline time.Time
}

// MemStore is an in-process `Store`, mainly intended for tests and for
// single-process deployments that don't need a shared backing store.
//
// Expired entries are lazily evicted when they are next read.
type MemStore struct {
    // Every stored entry, keyed by its full, namespaced key.
    entries map[string]memEntry

    // Synchronizes access to `entries`.
    mutex sync.Mutex
}

// Get the value associated with `key`, evicting it first if it expired.
func (m *MemStore) Get(ctx context.Context, key string) (string, error) {
    m.mutex.Lock()
    defer m.mutex.Unlock()

    entry, ok := m.entries[key]
    if !ok {
        return "", NotFound
    }

    if !entry.deadline.IsZero() && time.Now().After(entry.deadline) {
        delete(m.entries, key)
        return "", NotFound
    }

    return entry.value, nil
}

// Set `key` to `value`, with no expiration.
func (m *MemStore) Set(ctx context.Context, key, value string) error {
    m.mutex.Lock()
    m.entries[key] = memEntry {
        value: value,
    }
    m.mutex.Unlock()

    return nil
}

// SetEx set `key` to `value`, expiring after `ttl`.
func (m *MemStore) SetEx(ctx context.Context, key, value string,
        ttl time.Duration) error {

    m.mutex.Lock()
    m.entries[key] = memEntry {
        value: value,
        deadline: time.Now().Add(ttl),
    }
    m.mutex.Unlock()

    return nil
}

// Del remove `key`, doing nothing if it's absent.
func (m *MemStore) Del(ctx context.Context, key string) error {
    m.mutex.Lock()
    delete(m.entries, key)
    m.mutex.Unlock()

    return nil
}

// NewMemStore create an empty in-process `Store`.
func NewMemStore() *MemStore {
    return &MemStore {
        entries: make(map[string]memEntry),
    }
}
