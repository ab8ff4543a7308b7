package kitsune_chat

import (
    "context"
    "testing"
    "time"
)

// How long tests wait for a message before giving up.
const testTimeout = time.Millisecond * 250

// connect `conn` to the relay in a background goroutine, returning a
// channel that yields `ConnectAndWait`'s result once the session is fully
// torn down.
func connect(r ChatRelay, connID string, conn Conn) chan error {
    wait := make(chan error, 1)

    go func() {
        wait <- r.ConnectAndWait(connID, conn)
    } ()

    return wait
}

// expectPayload read the next payload from `sub` and compare it against
// `want`.
func expectPayload(t *testing.T, sub Subscription, want string) {
    t.Helper()

    msg, err := recvSub(t, sub, testTimeout)
    if err != nil {
        t.Errorf("Didn't receive the expected payload '%s': %+v", want, err)
    } else if want != msg {
        t.Errorf("Invalid payload: expected '%s' but got '%s'", want, msg)
    }
}

// TestJoinWithNonce check the full handshake: an authenticated page load
// issues a nonce, the connection claims it, and the arrival is announced
// on the global channel under the claimed display name.
func TestJoinWithNonce(t *testing.T) {
    ctx := context.Background()
    store := NewMemStore()
    bus := NewMemBus()
    r := NewRelay(store, bus)

    nonce, err := r.IssueNonce(ctx, "alice")
    if err != nil {
        t.Errorf("Couldn't issue a nonce: %+v", err)
    }

    // Watch the global channel from outside of the session.
    watch, err := bus.Subscribe(ctx)
    if err != nil {
        t.Errorf("Couldn't subscribe: %+v", err)
    }
    defer watch.Close()

    mc := NewMockConn().(*mockConn)
    wait := connect(r, "sid-1", mc)

    mc.TestSend("Joined:" + nonce)
    expectPayload(t, watch, "alice has joined")

    // Exactly one message was published by the handshake.
    select {
    case extra := <-watch.Messages():
        t.Errorf("The handshake published an extra payload: '%s'", extra)
    default:
    }

    // The sender's own listener also forwards the announcement back.
    msg, err := mc.TestRecv(testTimeout)
    if err != nil {
        t.Errorf("The client didn't receive the announcement: %+v", err)
    } else if want, got := "alice has joined", msg; want != got {
        t.Errorf("Invalid payload: expected '%s' but got '%s'", want, got)
    }

    mc.Close()
    if err := <-wait; err != nil {
        t.Errorf("The session exited with an error: %+v", err)
    }
}

// TestChatLine check that a bound connection's lines are published
// prefixed by its display name.
func TestChatLine(t *testing.T) {
    ctx := context.Background()
    store := NewMemStore()
    bus := NewMemBus()
    r := NewRelay(store, bus)

    nonce, err := r.IssueNonce(ctx, "alice")
    if err != nil {
        t.Errorf("Couldn't issue a nonce: %+v", err)
    }

    watch, err := bus.Subscribe(ctx)
    if err != nil {
        t.Errorf("Couldn't subscribe: %+v", err)
    }
    defer watch.Close()

    mc := NewMockConn().(*mockConn)
    wait := connect(r, "sid-1", mc)

    mc.TestSend("Joined:" + nonce)
    expectPayload(t, watch, "alice has joined")

    mc.TestSend("hello there")
    expectPayload(t, watch, "alice: hello there")

    mc.Close()
    if err := <-wait; err != nil {
        t.Errorf("The session exited with an error: %+v", err)
    }
}

// TestChatLineUnbound check that a connection that never claimed a nonce
// still participates, labeled by its connection id.
func TestChatLineUnbound(t *testing.T) {
    ctx := context.Background()
    store := NewMemStore()
    bus := NewMemBus()
    r := NewRelay(store, bus)

    watch, err := bus.Subscribe(ctx)
    if err != nil {
        t.Errorf("Couldn't subscribe: %+v", err)
    }
    defer watch.Close()

    mc := NewMockConn().(*mockConn)
    wait := connect(r, "sid-1", mc)

    mc.TestSend("hi")
    expectPayload(t, watch, "sid-1: hi")

    mc.Close()
    if err := <-wait; err != nil {
        t.Errorf("The session exited with an error: %+v", err)
    }
}

// TestExpiredNonce check that claiming a nonce past its TTL isn't an
// error: the bind is skipped and the connection id is used as the display
// name, both on the announcement and on later lines.
func TestExpiredNonce(t *testing.T) {
    const nonceTTL = time.Millisecond * 2

    ctx := context.Background()
    store := NewMemStore()
    bus := NewMemBus()

    conf := GetDefaultConf()
    conf.NonceTTL = nonceTTL
    r := NewRelayConf(store, bus, conf)

    nonce, err := r.IssueNonce(ctx, "alice")
    if err != nil {
        t.Errorf("Couldn't issue a nonce: %+v", err)
    }

    // Let the store evict the nonce before the client connects.
    time.Sleep(nonceTTL * 5)

    watch, err := bus.Subscribe(ctx)
    if err != nil {
        t.Errorf("Couldn't subscribe: %+v", err)
    }
    defer watch.Close()

    mc := NewMockConn().(*mockConn)
    wait := connect(r, "sid-1", mc)

    mc.TestSend("Joined:" + nonce)
    expectPayload(t, watch, "sid-1 has joined")

    mc.TestSend("hi")
    expectPayload(t, watch, "sid-1: hi")

    mc.Close()
    if err := <-wait; err != nil {
        t.Errorf("The session exited with an error: %+v", err)
    }
}

// TestEmptyFrame check that empty frames are ignored instead of being
// published.
func TestEmptyFrame(t *testing.T) {
    ctx := context.Background()
    store := NewMemStore()
    bus := NewMemBus()
    r := NewRelay(store, bus)

    watch, err := bus.Subscribe(ctx)
    if err != nil {
        t.Errorf("Couldn't subscribe: %+v", err)
    }
    defer watch.Close()

    mc := NewMockConn().(*mockConn)
    wait := connect(r, "sid-1", mc)

    mc.TestSend("")
    mc.TestSend("after")
    expectPayload(t, watch, "sid-1: after")

    mc.Close()
    if err := <-wait; err != nil {
        t.Errorf("The session exited with an error: %+v", err)
    }
}

// TestDisconnectCleanup check the whole teardown: the departure is
// announced exactly once, the identity binding is released and the
// session's subscription doesn't outlive the connection.
func TestDisconnectCleanup(t *testing.T) {
    ctx := context.Background()
    store := NewMemStore()
    bus := NewMemBus()
    r := NewRelay(store, bus)

    nonce, err := r.IssueNonce(ctx, "alice")
    if err != nil {
        t.Errorf("Couldn't issue a nonce: %+v", err)
    }

    watch, err := bus.Subscribe(ctx)
    if err != nil {
        t.Errorf("Couldn't subscribe: %+v", err)
    }
    defer watch.Close()

    mc := NewMockConn().(*mockConn)
    wait := connect(r, "sid-1", mc)

    mc.TestSend("Joined:" + nonce)
    expectPayload(t, watch, "alice has joined")

    mc.Close()
    if err := <-wait; err != nil {
        t.Errorf("The session exited with an error: %+v", err)
    }

    expectPayload(t, watch, "alice has disconnected")
    select {
    case extra := <-watch.Messages():
        t.Errorf("The teardown published an extra payload: '%s'", extra)
    default:
    }

    // The binding was released, so the id is the fallback name again.
    reg := NewRegistry(store)
    if want, got := "sid-1", reg.Resolve(ctx, "sid-1"); want != got {
        t.Errorf("Invalid name after disconnect: expected '%s' but got '%s'", want, got)
    }

    // Only the watcher's subscription remains: the session's listener
    // released its own on teardown.
    bus.mutex.Lock()
    count := len(bus.subs)
    bus.mutex.Unlock()
    if want, got := 1, count; want != got {
        t.Errorf("Invalid subscriber count after disconnect: expected '%d' but got '%d'", want, got)
    }
}

// TestFanOut check that one published line reaches every connected
// client exactly once.
func TestFanOut(t *testing.T) {
    store := NewMemStore()
    bus := NewMemBus()
    r := NewRelay(store, bus)

    first := NewMockConn().(*mockConn)
    firstWait := connect(r, "sid-1", first)
    second := NewMockConn().(*mockConn)
    secondWait := connect(r, "sid-2", second)

    // Wait until both sessions subscribed, so neither misses the line.
    for i := 0; i < 100; i++ {
        bus.mutex.Lock()
        count := len(bus.subs)
        bus.mutex.Unlock()
        if count == 2 {
            break
        }
        time.Sleep(time.Millisecond)
    }

    first.TestSend("hi")

    for _, mc := range []*mockConn{first, second} {
        msg, err := mc.TestRecv(testTimeout)
        if err != nil {
            t.Errorf("A client missed the line: %+v", err)
        } else if want, got := "sid-1: hi", msg; want != got {
            t.Errorf("Invalid payload: expected '%s' but got '%s'", want, got)
        }

        select {
        case extra := <-mc.fromServer:
            t.Errorf("A client received an extra payload: '%s'", extra)
        default:
        }
    }

    first.Close()
    second.Close()
    if err := <-firstWait; err != nil {
        t.Errorf("The first session exited with an error: %+v", err)
    }
    if err := <-secondWait; err != nil {
        t.Errorf("The second session exited with an error: %+v", err)
    }
}

// TestAnonymousNonce check that an anonymous page load gets no nonce and
// no error.
func TestAnonymousNonce(t *testing.T) {
    r := NewRelay(NewMemStore(), NewMemBus())

    nonce, err := r.IssueNonce(context.Background(), "")
    if err != nil {
        t.Errorf("An anonymous page load reported an error: %+v", err)
    } else if len(nonce) != 0 {
        t.Errorf("An anonymous page load received a nonce: '%s'", nonce)
    }
}
