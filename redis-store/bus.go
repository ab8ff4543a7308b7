package redis_store

import (
    kitsune "github.com/tgavankar/kitsune-chat"
    "github.com/redis/go-redis/v9"

    "context"
    "sync/atomic"
)

// Bus implement `kitsune.Bus` over Redis pub/sub, publishing and
// subscribing on a single, configured channel.
type Bus struct {
    // The underlying Redis client.
    client *redis.Client

    // The name of the pub/sub channel shared by every subscriber.
    channel string
}

// Publish `payload` to every current subscriber of the bus's channel, on
// this process and on every other relay process sharing the same Redis
// instance.
func (b *Bus) Publish(ctx context.Context, payload string) error {
    return b.client.Publish(ctx, b.channel, payload).Err()
}

// Subscribe to the bus's channel.
//
// Subscribe only returns after Redis confirmed the subscription, so a
// payload published right afterwards is already observed. The
// confirmation notice itself, and any other subscription-management
// notice, is consumed here and never surfaces as a payload.
func (b *Bus) Subscribe(ctx context.Context) (kitsune.Subscription, error) {
    pubsub := b.client.Subscribe(ctx, b.channel)

    // Wait for Redis to acknowledge the subscription. On failure, the
    // pubsub must still be closed to release its connection.
    _, err := pubsub.Receive(ctx)
    if err != nil {
        pubsub.Close()
        return nil, err
    }

    s := &redisSub {
        pubsub: pubsub,
        recv: make(chan string),
        stop: make(chan struct{}),
        running: 1,
    }
    go s.pump()

    return s, nil
}

// NewBus create a `kitsune.Bus` over the supplied Redis client, flowing
// through the pub/sub channel named `channel`.
func NewBus(client *redis.Client, channel string) *Bus {
    return &Bus {
        client: client,
        channel: channel,
    }
}

// redisSub is one subscriber's view of a Redis-backed bus.
type redisSub struct {
    // The underlying Redis subscription.
    pubsub *redis.PubSub

    // recv carries payloads from `pump()` to the subscriber.
    recv chan string

    // stop signals, by getting closed, that the subscriber went away, so
    // `pump()` must not block forwarding payloads to it anymore.
    stop chan struct{}

    // Whether the subscription is still open.
    running uint32
}

// pump adapt the go-redis message channel to a plain string channel.
//
// go-redis only delivers genuine messages on `pubsub.Channel()`, so no
// extra filtering of subscription-management notices is needed here. The
// goroutine exits, closing `recv`, once the subscription gets closed.
func (s *redisSub) pump() {
    defer close(s.recv)

    for msg := range s.pubsub.Channel() {
        select {
        case s.recv <- msg.Payload:
        case <-s.stop:
            return
        }
    }
}

// Messages yield every payload published to the bus.
func (s *redisSub) Messages() <-chan string {
    return s.recv
}

// Close the subscription, releasing its server-side resources.
//
// This can safely be called multiple times without any issue.
func (s *redisSub) Close() error {
    if atomic.CompareAndSwapUint32(&s.running, 1, 0) {
        close(s.stop)

        // Closing the pubsub makes go-redis close the channel that
        // `pump()` ranges over, so `recv` gets closed as well.
        return s.pubsub.Close()
    }

    return nil
}
