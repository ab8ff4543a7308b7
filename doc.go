/*
Package kitsune_chat implements a real-time chat relay over a shared
publish/subscribe bus.

The relay is divided into four components:

 - `ChatRelay`: The interface for the relay itself
 - `Bus`: The single global topic through which every message flows
 - `Store`: The shared key-value store backing the identity registry
 - `Conn`: A connection to the remote client

Internally, there are also a `Registry`, mapping transient identifiers to
display names, and a session per connected client, but sessions are never
exported by the API.

The first step to start a relay is to pick a `Store` and a `Bus` and
instantiate the relay through `NewRelay` or `NewRelayConf`. The latter
should be the preferred variant, as it's the one that allows the most
customization:

    conf := kitsune_chat.GetDefaultConf()
    // Modify 'conf' as desired
    relay := kitsune_chat.NewRelayConf(store, bus, conf)

For a single process, `NewMemStore()` and `NewMemBus()` work fine. To fan
messages out across several relay processes, use the implementations from
the `redis-store` sub-package, which back both interfaces with a shared
Redis instance.

Since the relay doesn't implement any authentication mechanism, the caller
is responsible by determining who the requester is. When an authenticated
page load happens, the caller must issue a nonce for that identity and
embed it in the page:

    nonce, err := relay.IssueNonce(ctx, "alice")
    if err != nil {
        // Handle the error
    }

    // XXX: Embed this nonce in the rendered page

An anonymous page load simply gets no nonce, and the page must tolerate
its absence. Issued nonces expire on their own after a configurable while
(5 minutes by default), bounding how long the handshake window stays open.

Then, the client must connect using something that implements the `Conn`
interface and an opaque connection id assigned by the transport.
`conn_test.go` implements `mockConn`, which uses chan string to send and
receive messages. Another option is the `gorilla-ws-conn` sub-package,
which implements the interface over a WebSocket connection. The client is
added to the chat by calling either `Connect`, which spawns a goroutine to
wait for messages from the client, or `ConnectAndWait`, which blocks until
the `Conn` gets closed:

    err := relay.ConnectAndWait(connID, conn)
    if err != nil {
        // Handle the error
    }

From this point onward, the first frame of the form `Joined:<nonce>` binds
the nonce's display name to the connection, and every other non-empty
frame is published to the bus as `<name>: <frame>`, falling back to the
raw connection id when no name was ever bound (e.g., because the nonce
expired before the client connected). Everything published to the bus,
including the client's own lines, is forwarded back to the client by a
dedicated goroutine that the session owns and tears down together with
the connection.
*/
package kitsune_chat
