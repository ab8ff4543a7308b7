package main

import (
    kitsune "github.com/tgavankar/kitsune-chat"
    redis_store "github.com/tgavankar/kitsune-chat/redis-store"
    "github.com/redis/go-redis/v9"

    "fmt"
    "io"
    "log"
    "net/http"
    "net/url"
    "path"
    "sync/atomic"
)

type server struct {
    // The server's HTTP server
    httpServer *http.Server
    // The chat relay
    chat kitsune.ChatRelay
    // The shared store, also used to read the cached status document
    store kitsune.Store
    // Number of currently connected clients
    active int64
    // The periodic status cache refresher
    status *statusCron
}

// ServeHTTP is called by Go's http package whenever a new HTTP request arrives
func (s *server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
    uri := cleanURL(req.URL)
    log.Printf("%s - %s - %s", req.RemoteAddr, req.Method, uri)

    if uri == "chat" || uri == "" {
        // Whoever the hosting framework authenticated is forwarded as the
        // 'user' query parameter; an anonymous visitor simply has none
        // and gets a page without a nonce.
        identity := req.URL.Query().Get("user")

        nonce, err := s.chat.IssueNonce(req.Context(), identity)
        if err != nil {
            httpTextReply(http.StatusInternalServerError, fmt.Sprintf("Couldn't issue a nonce: %+v", err), w)
            log.Printf("%s - %s - %s [500]", req.RemoteAddr, req.Method, uri)
            return
        }

        serveChatPage(w, nonce)
    } else if uri == "chat/status" {
        s.serveStatus(w, req)
    } else if uri == "ws" {
        // Upgrade to websocket, with a transport-assigned connection id
        conn, connID, err := newConn(w, req)
        if err != nil {
            httpTextReply(http.StatusInternalServerError, fmt.Sprintf("Couldn't upgrade the connection: %+v", err), w)
            log.Printf("%s - %s - %s [500]", req.RemoteAddr, req.Method, uri)
            return
        }

        atomic.AddInt64(&s.active, 1)
        defer atomic.AddInt64(&s.active, -1)

        // On success, the upgraded request is handled by the relay until
        // the client goes away
        err = s.chat.ConnectAndWait(connID, conn)
        if err != nil {
            // Can't do HTTP anymore as the connection was upgraded to a websocket
            conn.Close()
            log.Printf("%s - %s - %s - Connection exited with an error (%s): %+v", req.RemoteAddr, req.Method, uri, connID, err)
        }
    } else {
        httpTextReply(http.StatusNotFound, "404 - Nothing to see here...", w)
        log.Printf("%s - %s - %s [404]", req.RemoteAddr, req.Method, uri)
    }
}

// serveStatus dump the cached status document.
//
// The document is refreshed out-of-band (see `statusCron`); this is a pure
// cache read. An absent document is reported as a 503 with an empty body,
// so monitors may tell "nothing cached yet" apart from a regular reply.
func (s *server) serveStatus(w http.ResponseWriter, req *http.Request) {
    status := http.StatusOK

    doc, err := s.store.Get(req.Context(), statusCacheKey)
    if err != nil {
        doc = ""
        status = http.StatusServiceUnavailable
    }

    w.Header().Set("Content-Type", "application/xml")
    w.WriteHeader(status)
    w.Write([]byte(doc))
}

// cleanURL so everything is properly escaped/encoded and so it may be split into each of its components.
//
// Use `url.Unescape` to retrieve the unescaped path, if so desired.
func cleanURL(uri *url.URL) string {
    // Normalize and strip the URL from its leading prefix (and slash)
    resUrl := path.Clean(uri.EscapedPath())
    if len(resUrl) > 0 && resUrl[0] == '/' {
        resUrl = resUrl[1:]
    } else if len(resUrl) == 1 && resUrl[0] == '.' {
        // Clean converts an empty path into a single "."
        resUrl = ""
    }

    return resUrl
}

// httpTextReply send a simple HTTP response as a plain text.
func httpTextReply(status int, msg string, w http.ResponseWriter) {
    w.Header().Set("Content-Type", "text/plain")
    w.WriteHeader(status)

    for data := []byte(msg); len(data) > 0; {
        n, err := w.Write(data)
        if err != nil {
            log.Printf("Failed to send %d: %+v", err, status)
            return
        }
        data = data[n:]
    }
}

// Close the running web server and clean up resources
func (s *server) Close() error {
    if s.status != nil {
        s.status.Close()
        s.status = nil
    }
    if s.httpServer != nil {
        s.httpServer.Close()
        s.httpServer = nil
    }

    return nil
}

// runWeb server into a goroutine
func runWeb(args Args) io.Closer {
    var srv server

    client := redis.NewClient(&redis.Options {
        Addr: args.RedisAddr,
    })
    store := redis_store.NewStore(client)
    bus := redis_store.NewBus(client, args.Channel)

    conf := kitsune.GetDefaultConf()
    conf.Logger = log.Default()
    conf.DebugLog = args.DebugLog

    srv.store = store
    srv.chat = kitsune.NewRelayConf(store, bus, conf)
    srv.status = newStatusCron(store, &srv.active, args.StatusPeriod)
    srv.httpServer = &http.Server {
        Addr: fmt.Sprintf("%s:%d", args.IP, args.Port),
        Handler: &srv,
    }
    setUpgrader(args)

    go func() {
        log.Printf("Waiting...")
        srv.httpServer.ListenAndServe()
    } ()

    return &srv
}
