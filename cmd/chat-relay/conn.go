package main

import (
    kitsune "github.com/tgavankar/kitsune-chat"
    kitsune_ws "github.com/tgavankar/kitsune-chat/gorilla-ws-conn"
    gows "github.com/gorilla/websocket"

    "net/http"
    "time"
)

// How long a remote connection may stay idle.
const timeout = time.Minute

// Upgrade a HTTP connection to a chat connection, alongside its
// transport-assigned connection id.
func newConn(w http.ResponseWriter,
        req *http.Request) (kitsune.Conn, string, error) {

    return kitsune_ws.NewConn(upgrader, timeout, w, req)
}

var upgrader gows.Upgrader

func ignoreOrigin(r *http.Request) bool {
    return true
}

func setUpgrader(args Args) {
    upgrader = gows.Upgrader {
        ReadBufferSize:  args.ReadSize,
        WriteBufferSize: args.WriteSize,
    }
    if args.IgnoreOrigin {
        upgrader.CheckOrigin = ignoreOrigin
    }
}
