package kitsune_chat

import (
    "context"
    "log"
    "time"
)

// For how long an issued nonce may be claimed before the store evicts it.
const defNonceTTL = time.Second * 300

// Conf configure a chat relay.
type Conf struct {
    // NonceTTL is for how long an issued nonce may be claimed before the
    // store evicts it. Defaults to `defNonceTTL`, if zero.
    NonceTTL time.Duration

    // Logger used by the relay to report events. If this is nil, no
    // message shall be logged!
    Logger *log.Logger

    // Whether debug messages should be logged.
    DebugLog bool
}

// GetDefaultConf retrieve the default configurations for the chat relay.
func GetDefaultConf() Conf {
    return Conf {
        NonceTTL: defNonceTTL,
    }
}

// The chat relay.
type relay struct {
    // The relay's configuration.
    conf Conf

    // The shared key-value store backing the identity registry.
    store Store

    // The shared bus through which every chat line and presence notice
    // flows.
    bus Bus

    // reg map nonces and connection ids to display names.
    reg *Registry
}

// The public interface of the chat relay.
type ChatRelay interface {
    // IssueNonce generate a single-use nonce for an authenticated page
    // load, registering `identity` as the display name that a connection
    // presenting this nonce will claim.
    //
    // An anonymous caller (an empty `identity`) receives no nonce and no
    // error; whatever renders the page must tolerate an absent nonce.
    //
    // IssueNonce should only fail if the nonce couldn't be generated or if
    // the backing store couldn't be reached.
    IssueNonce(ctx context.Context, identity string) (string, error)

    // Connect add a new remote client to the chat, identified by the
    // opaque, transport-assigned `connID`, spawning a goroutine to handle
    // the connection until it gets closed.
    Connect(connID string, conn Conn)

    // ConnectAndWait add a new remote client to the chat, identified by
    // the opaque, transport-assigned `connID`, and block until the client
    // closes the connection.
    //
    // This may be advantageous if the external server already spawns a new
    // goroutine to handle each new connection.
    //
    // If `conn` is nil, then this function will panic!
    ConnectAndWait(connID string, conn Conn) error
}

// IssueNonce generate a single-use nonce for an authenticated page load.
//
// See `ChatRelay.IssueNonce` for a more complete description.
//
// The nonce is generated from a cryptographically secure source, over a
// 32-symbol alphabet safe to embed in a page.
func (r *relay) IssueNonce(ctx context.Context,
        identity string) (string, error) {

    if len(identity) == 0 {
        return "", nil
    }

    nonce, err := newNonce()
    if err != nil {
        return "", err
    }

    err = r.store.SetEx(ctx, nonceKeyPrefix + nonce, identity, r.conf.NonceTTL)
    if err != nil {
        return "", err
    }

    if r.conf.DebugLog && r.conf.Logger != nil {
        r.conf.Logger.Printf("[DEBUG] kitsune-chat/relay: Issued a nonce.\n\tidentity: \"%s\"\n\tttl: \"%+v\"",
                identity, r.conf.NonceTTL)
    }

    return nonce, nil
}

// NewRelayConf create a new chat relay over `store` and `bus`, configured
// by `conf`.
func NewRelayConf(store Store, bus Bus, conf Conf) ChatRelay {
    if conf.NonceTTL <= 0 {
        conf.NonceTTL = defNonceTTL
    }

    return &relay {
        conf: conf,
        store: store,
        bus: bus,
        reg: newRegistry(store, conf.Logger, conf.DebugLog),
    }
}

// NewRelay create a new chat relay over `store` and `bus` with the default
// configurations.
func NewRelay(store Store, bus Bus) ChatRelay {
    return NewRelayConf(store, bus, GetDefaultConf())
}
