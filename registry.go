package kitsune_chat

import (
    "context"
    "log"
)

// Key namespace for nonce-keyed identity entries.
const nonceKeyPrefix = "chatnonce:"

// Key namespace for connection-keyed identity entries.
const connKeyPrefix = "chatsid:"

// Registry map transient identifiers to display names over a shared
// `Store`.
//
// It holds two distinct mappings, kept apart by their key namespaces: a
// short-lived `nonce -> display name` entry written when a nonce is issued,
// and a `connection-id -> display name` entry that lives for as long as its
// connection and must be explicitly released on disconnect.
type Registry struct {
    // The shared key-value store backing the registry.
    store Store

    // logger used by the registry to report events. If this is nil, no
    // message shall be logged!
    logger *log.Logger

    // Whether debug messages should be logged.
    debugLog bool
}

// Claim look up the display name registered for `nonce`.
//
// The nonce-keyed entry is left in the store untouched, to be evicted by
// its own expiry. An unknown or expired nonce is reported as
// `InvalidNonce`; any other failure comes from the store itself.
func (r *Registry) Claim(ctx context.Context, nonce string) (string, error) {
    name, err := r.store.Get(ctx, nonceKeyPrefix + nonce)
    if err == NotFound {
        return "", InvalidNonce
    } else if err != nil {
        return "", err
    }

    return name, nil
}

// Bind register `name` as the display name for `connID`.
//
// The entry has no expiry of its own: it lives until `Release` is called
// for the same `connID`. Binding an already bound connection overwrites
// the previous name.
func (r *Registry) Bind(ctx context.Context, connID, name string) error {
    return r.store.Set(ctx, connKeyPrefix + connID, name)
}

// Resolve the display name bound to `connID`.
//
// Resolve never fails: if no name is bound, or if the store couldn't even
// be reached, the connection's own identifier is returned as a usable
// display name. A store failure is logged, as the fallback hides it from
// the caller.
func (r *Registry) Resolve(ctx context.Context, connID string) string {
    name, err := r.store.Get(ctx, connKeyPrefix + connID)
    if err == nil {
        return name
    }

    if err != NotFound && r.logger != nil {
        r.logger.Printf("[ERROR] kitsune-chat/registry: Couldn't resolve the connection, falling back to its id.\n\tconnection: \"%s\"\n\terror: %+v",
                connID, err)
    } else if err == NotFound && r.debugLog && r.logger != nil {
        r.logger.Printf("[DEBUG] kitsune-chat/registry: No name bound to the connection, falling back to its id.\n\tconnection: \"%s\"",
                connID)
    }

    return connID
}

// Release remove the display name bound to `connID`.
//
// Releasing a connection that was never bound is not an error, so Release
// may be called unconditionally during teardown.
func (r *Registry) Release(ctx context.Context, connID string) error {
    return r.store.Del(ctx, connKeyPrefix + connID)
}

// NewRegistry create a `Registry` over `store`.
func NewRegistry(store Store) *Registry {
    return &Registry {
        store: store,
    }
}

// newRegistry create a `Registry` over `store` that reports events to
// `logger`.
func newRegistry(store Store, logger *log.Logger, debugLog bool) *Registry {
    return &Registry {
        store: store,
        logger: logger,
        debugLog: debugLog,
    }
}
