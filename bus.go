package kitsune_chat

import (
    "context"
    "io"
    "sync"
)

// Size of the buffer between the bus and each subscriber. If a subscriber
// falls this far behind, messages start getting dropped, as delivery is
// best-effort.
const subBufSize = 32

// Bus is the message-passing abstraction through which every chat line and
// presence notice flows.
//
// There's a single global topic: every payload published to the bus reaches
// every subscriber, including the publisher's own subscription. The relay
// core depends only on this interface, so the backing implementation may be
// swapped (e.g., a `MemBus` in tests, a Redis channel in production).
type Bus interface {
    // Publish `payload` to every current subscriber.
    Publish(ctx context.Context, payload string) error

    // Subscribe to the bus, receiving every payload published from this
    // point onward.
    //
    // The returned subscription must be closed once it's no longer needed,
    // otherwise its resources are leaked.
    Subscribe(ctx context.Context) (Subscription, error)
}

// Subscription is one subscriber's view of the bus.
type Subscription interface {
    io.Closer

    // Messages yield every genuine payload published to the bus.
    //
    // Subscription-management notices are filtered out by the
    // implementation, so only actual chat payloads are ever received from
    // this channel. The channel gets closed when the subscription is
    // closed.
    Messages() <-chan string
}

// memSub is a subscription on a `MemBus`.
type memSub struct {
    // The bus this subscription belongs to.
    bus *MemBus

    // recv buffers payloads between the bus and the subscriber.
    recv chan string

    // Whether the subscription was already closed. Guarded by the bus's
    // mutex.
    closed bool
}

// Messages yield every payload published to the bus.
func (s *memSub) Messages() <-chan string {
    return s.recv
}

// Close the subscription, releasing it from the bus.
//
// This can safely be called multiple times without any issue.
func (s *memSub) Close() error {
    s.bus.mutex.Lock()
    if !s.closed {
        s.closed = true
        delete(s.bus.subs, s)
        close(s.recv)
    }
    s.bus.mutex.Unlock()

    return nil
}

// MemBus is an in-process `Bus`, delivering payloads over plain channels.
//
// It's mainly intended for tests and for single-process deployments, where
// fanning out through a shared external broker would be overkill.
type MemBus struct {
    // Every currently open subscription.
    subs map[*memSub]struct{}

    // Synchronizes access to `subs`.
    mutex sync.Mutex
}

// Publish `payload` to every current subscriber.
//
// Delivery is best-effort: a subscriber that stopped draining its
// subscription has its payloads dropped instead of blocking the publisher.
func (b *MemBus) Publish(ctx context.Context, payload string) error {
    b.mutex.Lock()
    for s := range b.subs {
        select {
        case s.recv <- payload:
        default:
        }
    }
    b.mutex.Unlock()

    return nil
}

// Subscribe to the bus, receiving every payload published from this point
// onward.
func (b *MemBus) Subscribe(ctx context.Context) (Subscription, error) {
    s := &memSub {
        bus: b,
        recv: make(chan string, subBufSize),
    }

    b.mutex.Lock()
    b.subs[s] = struct{}{}
    b.mutex.Unlock()

    return s, nil
}

// NewMemBus create an in-process `Bus` with no subscribers.
func NewMemBus() *MemBus {
    return &MemBus {
        subs: make(map[*memSub]struct{}),
    }
}
