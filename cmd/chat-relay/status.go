package main

import (
    kitsune "github.com/tgavankar/kitsune-chat"

    "context"
    "encoding/xml"
    "log"
    "sync/atomic"
    "time"
)

// Cache key under which the status document is kept.
const statusCacheKey = "chat:queue-status"

// queueStatus is the cached status document, served by `/chat/status`.
type queueStatus struct {
    XMLName xml.Name `xml:"queue-status"`

    // When this snapshot was taken, in RFC 3339.
    Generated string `xml:"generated"`

    // Number of clients connected to this relay process.
    Connected int64 `xml:"connected"`
}

// statusCron periodically snapshot the relay's state into the status
// cache.
//
// The relay core itself never reads nor writes this document; it's an
// out-of-band convenience for monitors polling `/chat/status`.
type statusCron struct {
    // The shared store holding the cached document.
    store kitsune.Store

    // active points at the server's connected-clients counter.
    active *int64

    // Delay between two snapshots.
    period time.Duration

    // stop signals, by getting closed, that the cron should get closed.
    stop chan struct{}

    // Whether the cron is currently running.
    running uint32
}

// run refresh the cached status document until the cron gets closed.
//
// Each document is cached for twice the refresh period, so a crashed
// relay stops reporting a stale status on its own.
func (c *statusCron) run() {
    ticker := time.NewTicker(c.period)
    defer ticker.Stop()

    for {
        select {
        case <-c.stop:
            return
        case <-ticker.C:
            err := c.refresh()
            if err != nil {
                log.Printf("chat-relay/status: Couldn't refresh the status cache: %+v", err)
            }
        }
    }
}

// refresh take one snapshot and cache it.
func (c *statusCron) refresh() error {
    doc, err := xml.Marshal(queueStatus {
        Generated: time.Now().Format(time.RFC3339),
        Connected: atomic.LoadInt64(c.active),
    })
    if err != nil {
        return err
    }

    ctx, cancel := context.WithTimeout(context.Background(), c.period)
    defer cancel()

    return c.store.SetEx(ctx, statusCacheKey, string(doc), c.period * 2)
}

// Close the cron, stopping its goroutine.
//
// This can safely be called multiple times without any issue.
func (c *statusCron) Close() error {
    if atomic.CompareAndSwapUint32(&c.running, 1, 0) {
        close(c.stop)
    }

    return nil
}

// newStatusCron create a status cron refreshing the cache every `period`,
// and start its goroutine.
func newStatusCron(store kitsune.Store, active *int64,
        period time.Duration) *statusCron {

    c := &statusCron {
        store: store,
        active: active,
        period: period,
        stop: make(chan struct{}),
        running: 1,
    }

    go c.run()

    return c
}
