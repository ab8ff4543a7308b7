// Package gorilla_ws_conn implements the Conn interface from
// https://github.com/tgavankar/kitsune-chat  over a WebSocket connection
// from https://github.com/gorilla/websocket.
//
// Each upgraded connection is also assigned an opaque connection id,
// solely owned by the transport, which the relay uses to identify the
// session until a nonce binds a display name to it.
package gorilla_ws_conn

import (
    kitsune "github.com/tgavankar/kitsune-chat"
    "github.com/google/uuid"
    gows "github.com/gorilla/websocket"

    "log"
    "net/http"
    "sync"
    "sync/atomic"
    "time"
)

// defaultPing is sent on ping messages as the application data.
const defaultPing = "kitsune-chat says hi"

// module is the string used when logging messages from this package.
const module = "kitsune-chat/gorilla-ws-conn"

// gwsConn wrap a gorilla/ws connection into a kitsune.Conn.
type gwsConn struct {
    // The gorilla WebSocket connection.
    ws *gows.Conn

    // How long the connection waits without any incoming message until
    // pinging the remote endpoint.
    timeout time.Duration

    // idle generates a tick if `timeout` elapsed without receiving any
    // message.
    idle *time.Ticker

    // pinged tracks whether the last idle timeout already caused a ping.
    // A second timeout without any message in between closes the
    // connection.
    pinged uint32

    // sendMutex synchronizes write operations on `ws`.
    sendMutex sync.Mutex

    // Whether the connection is currently active.
    active uint32

    // stop signals, by getting closed, that the connection should get
    // closed.
    stop chan struct{}
}

// isActive check if the connection is still active.
func (c *gwsConn) isActive() bool {
    return atomic.LoadUint32(&c.active) == 1
}

// Close the connection.
//
// This can safely be called multiple times without any issue.
func (c *gwsConn) Close() error {
    if atomic.CompareAndSwapUint32(&c.active, 1, 0) {
        c.sendMutex.Lock()
        c.ws.Close()
        c.ws = nil
        c.sendMutex.Unlock()

        c.idle.Stop()
        close(c.stop)
    }

    return nil
}

// touch report activity from the remote endpoint, delaying the idle
// timeout.
func (c *gwsConn) touch() {
    atomic.StoreUint32(&c.pinged, 0)
    c.idle.Reset(c.timeout)
}

// Recv blocks until a new message was received.
//
// Control frames are handled internally, so only text frames are ever
// returned. Any failure on the transport reports the connection as closed.
func (c *gwsConn) Recv() (string, error) {
    for c.ws != nil {
        typ, txt, err := c.ws.ReadMessage()
        if err != nil {
            c.Close()
            return "", kitsune.ConnEOF
        }

        c.touch()

        switch typ {
        case gows.CloseMessage:
            c.Close()
            return "", kitsune.ConnEOF
        case gows.TextMessage:
            return string(txt), nil
        default:
            continue
        }
    }

    return "", kitsune.ConnEOF
}

// send the message, properly synchronizing the connection.
func (c *gwsConn) send(mType int, data []byte) error {
    var err error

    c.sendMutex.Lock()
    if c.ws != nil {
        err = c.ws.WriteMessage(mType, data)
    } else {
        err = kitsune.ConnEOF
    }
    c.sendMutex.Unlock()

    return err
}

// SendStr send `msg`, previously formatted by the caller.
func (c *gwsConn) SendStr(msg string) error {
    if c.ws == nil {
        return kitsune.ConnEOF
    }

    return c.send(gows.TextMessage, []byte(msg))
}

// detectTimeout wait some time checking if the connection timed out.
//
// On the first timeout without incoming messages, the remote endpoint is
// pinged. On the second consecutive one, the connection is closed.
func (c *gwsConn) detectTimeout() {
    for c.isActive() {
        select {
        case <-c.idle.C:
            if atomic.CompareAndSwapUint32(&c.pinged, 0, 1) {
                err := c.send(gows.PingMessage, []byte(defaultPing))
                if err != nil {
                    log.Printf("%s: Couldn't ping on timeout: %+v", module,
                            err)
                    c.Close()
                }
            } else {
                c.Close()
            }
        case <-c.stop:
            /* Do nothing and simply exit */
        }
    }
}

// ping handle received ping messages.
//
// The WebSocket protocol defines that the receiver must respond with a
// pong carrying the same `appData` as received.
//
// Instead of using the default ping handler, it's important to use a
// custom one to guarantee that this write isn't concurrent to other
// messages.
func (c *gwsConn) ping(appData string) error {
    c.touch()

    return c.send(gows.PongMessage, []byte(appData))
}

// pong handle received pong messages.
//
// Both unrequested pongs and pongs answering this connection's pings
// count as activity from the remote endpoint, and nothing else needs to
// be done with them.
func (c *gwsConn) pong(appData string) error {
    c.touch()

    return nil
}

// Upgrade a HTTP connection to a chat connection, also assigning it an
// opaque connection id.
//
// The supplied `upgrader` is used to upgrade the HTTP request into a
// WebSocket connection. Other than that, this connection times out if it
// doesn't receive any message from its remote endpoint in `timeout`. Upon
// timing out, the connection will first try to ping the remote endpoint,
// but it will close if there's no response in a timely manner.
//
// Gorilla/ws's documentation specifies that if `SetReadDeadline` is set
// and a read times out, the websocket becomes corrupt. To work around
// that, `NewConn` spawns a goroutine to manually detect timeouts.
func NewConn(upgrader gows.Upgrader, timeout time.Duration,
        w http.ResponseWriter, req *http.Request) (kitsune.Conn, string,
        error) {

    ws, err := upgrader.Upgrade(w, req, nil)
    if err != nil {
        return nil, "", err
    }

    c := &gwsConn {
        ws: ws,
        timeout: timeout,
        idle: time.NewTicker(timeout),
        active: 1,
        stop: make(chan struct{}),
    }
    ws.SetPingHandler(c.ping)
    ws.SetPongHandler(c.pong)
    go c.detectTimeout()

    return c, uuid.NewString(), nil
}
