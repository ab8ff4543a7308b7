package kitsune_chat

import (
    "context"
    "io"
    "strings"
)

// Conn is a generic interface for sending and receiving messages.
type Conn interface {
    io.Closer

    // Recv blocks until a new message was received.
    Recv() (string, error)

    // SendStr send `msg`, previously formatted by the caller.
    SendStr(msg string) error
}

// Prefix of the frame through which a client claims its nonce. The same
// frame is sent again when the client's transport silently reconnects
// under a fresh connection id, rebinding the still-valid nonce to it.
const joinedPrefix = "Joined:"

// session own one live client connection end-to-end: its identity binding,
// the goroutine forwarding bus payloads back to the client, and the
// teardown of both when the client goes away.
type session struct {
    // The opaque identifier assigned to this connection by the transport.
    connID string

    // The connection to the remote endpoint.
    conn Conn

    // The relay this session belongs to.
    relay *relay
}

// ConnectAndWait add a new remote client to the chat and block until the
// client closes the connection.
//
// See `ChatRelay.ConnectAndWait` for a more complete description.
func (r *relay) ConnectAndWait(connID string, conn Conn) error {
    if conn == nil {
        panic("kitsune-chat ConnectAndWait: nil conn")
    }

    s := &session {
        connID: connID,
        conn: conn,
        relay: r,
    }

    return s.run()
}

// Connect add a new remote client to the chat, spawning a goroutine to
// handle the connection until it gets closed.
//
// See `ChatRelay.Connect` for a more complete description.
func (r *relay) Connect(connID string, conn Conn) {
    go func() {
        err := r.ConnectAndWait(connID, conn)
        if err != nil && r.conf.Logger != nil {
            r.conf.Logger.Printf("[ERROR] kitsune-chat/session: Connection exited with an error.\n\tconnection: \"%s\"\n\terror: %+v",
                    connID, err)
        }
    } ()
}

// run the session until the remote client disconnects.
//
// On entry, the session subscribes to the bus and spawns `s.listen()` to
// forward published payloads back to the client. The calling goroutine
// then blocks receiving the client's frames. Whichever way the receive
// loop exits, the deferred teardown announces the departure, releases the
// identity bound to this connection and stops the listener, so neither the
// subscription nor its goroutine may outlive the connection.
func (s *session) run() (runErr error) {
    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()

    sub, err := s.relay.bus.Subscribe(ctx)
    if err != nil {
        return err
    }

    if s.relay.conf.DebugLog && s.relay.conf.Logger != nil {
        s.relay.conf.Logger.Printf("[DEBUG] kitsune-chat/session: Connected.\n\tconnection: \"%s\"",
                s.connID)
    }

    done := make(chan struct{})
    go s.listen(ctx, sub, done)

    defer func() {
        // The departure notice and the registry cleanup must run on every
        // exit path, even when the loop below stopped on a publish error.
        name := s.relay.reg.Resolve(ctx, s.connID)
        err := s.relay.bus.Publish(ctx, name + " has disconnected")
        if err != nil && runErr == nil {
            runErr = err
        }

        err = s.relay.reg.Release(ctx, s.connID)
        if err != nil && runErr == nil {
            runErr = err
        }

        cancel()
        sub.Close()
        <-done

        if s.relay.conf.DebugLog && s.relay.conf.Logger != nil {
            s.relay.conf.Logger.Printf("[DEBUG] kitsune-chat/session: Disconnected.\n\tconnection: \"%s\"",
                    s.connID)
        }
    } ()

    for {
        msg, err := s.conn.Recv()
        if err != nil {
            // The transport reported the connection as closed.
            return runErr
        } else if len(msg) == 0 {
            continue
        }

        if strings.HasPrefix(msg, joinedPrefix) {
            err = s.join(ctx, msg[len(joinedPrefix):])
        } else {
            err = s.say(ctx, msg)
        }

        if err != nil {
            // A failure to reach the registry or the bus desynchronizes
            // the chat, so it's fatal to the session instead of being
            // silently dropped.
            runErr = err
            return runErr
        }
    }
}

// join claim `nonce` for this connection and announce the arrival.
//
// An expired or unknown nonce is not fatal: the bind is skipped and the
// connection participates under its own id. This notably happens when the
// client's transport reconnects after the nonce's TTL elapsed, since the
// page (and thus the nonce) is only refreshed on a full reload.
func (s *session) join(ctx context.Context, nonce string) error {
    name, err := s.relay.reg.Claim(ctx, nonce)
    if err == nil {
        err = s.relay.reg.Bind(ctx, s.connID, name)
        if err != nil {
            return err
        }
    } else if err == InvalidNonce {
        if s.relay.conf.Logger != nil {
            s.relay.conf.Logger.Printf("[INFO] kitsune-chat/session: Couldn't claim the nonce; keeping the connection id as the display name.\n\tconnection: \"%s\"",
                    s.connID)
        }
    } else {
        return err
    }

    return s.relay.bus.Publish(ctx,
            s.relay.reg.Resolve(ctx, s.connID) + " has joined")
}

// say publish a chat line from this connection, prefixed by its display
// name.
func (s *session) say(ctx context.Context, msg string) error {
    return s.relay.bus.Publish(ctx,
            s.relay.reg.Resolve(ctx, s.connID) + ": " + msg)
}

// listen forward every payload published to the bus to this session's
// remote endpoint.
//
// `s.run()` executes listen in its own goroutine and owns its lifetime:
// the goroutine exits when the session's context is cancelled, when the
// subscription gets closed or when the remote endpoint stops accepting
// messages. It signals its exit by closing `done`.
func (s *session) listen(ctx context.Context, sub Subscription,
        done chan struct{}) {

    defer close(done)

    for {
        select {
        case <-ctx.Done():
            return
        case msg, ok := <-sub.Messages():
            if !ok {
                return
            }

            err := s.conn.SendStr(msg)
            if err != nil {
                if err != ConnEOF && s.relay.conf.Logger != nil {
                    s.relay.conf.Logger.Printf("[ERROR] kitsune-chat/session: Couldn't forward a payload to the client.\n\tconnection: \"%s\"\n\terror: %+v",
                            s.connID, err)
                }
                return
            }
        }
    }
}
