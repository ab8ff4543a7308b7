package main

import (
    "html/template"
    "log"
    "net/http"
)

// serveChatPage render the chat page, embedding `nonce` into it.
//
// `nonce` may be empty, for an anonymous visitor: the page still renders
// and connects, but the client has no identity to claim, so its lines show
// up under its connection id.
func serveChatPage(w http.ResponseWriter, nonce string) {
    w.Header().Set("Content-Type", "text/html")
    w.WriteHeader(http.StatusOK)

    err := chatPage.Execute(w, struct{ Nonce string }{ Nonce: nonce })
    if err != nil {
        log.Printf("Failed to render the chat page: %+v", err)
    }
}

var chatPage = template.Must(template.New("chat").Parse(`<html>
    <head>
        <title> Chat queue </title>
        <meta charset="utf-8" name="viewport" />

        <style>
            body {
                padding-left: 10%;
                padding-right: 10%;
                font-size: large;
            }
            div.chatbox {
                display: block;
                width: 95%;
                height: 75%;
                margin-top: 0.25em;
                overflow-y: scroll;
                border: solid;
                padding: 1em;
            }
            input.textbox {
                width: 90%;
                margin-right: 0.25em;
                margin-top: 0.25em;
                height: 2em;
                font-size: large;
            }
            input.button {
                height: 2em;
                font-size: large;
            }
        </style>

        <script>
            var sock = null;

            function connect() {
                var proto = (window.location.protocol == "https:" ? "wss://" : "ws://");
                sock = new WebSocket(proto + window.location.host + "/ws");

                sock.onopen = function() {
                    /* Claim the identity issued alongside this page. The
                     * same nonce is presented again on reconnect, since
                     * the page wasn't reloaded. */
                    var nonce = document.getElementById("nonce").value;
                    if (nonce != "") {
                        sock.send("Joined:" + nonce);
                    }
                };

                sock.onmessage = function(ev) {
                    var box = document.getElementById("chatbox");
                    var line = document.createElement("div");
                    line.appendChild(document.createTextNode(ev.data));
                    box.appendChild(line);
                    box.scrollTop = box.scrollHeight;
                };

                sock.onclose = function() {
                    setTimeout(connect, 1000);
                };
            }

            function sendLine() {
                var input = document.getElementById("line");
                if (input.value != "" && sock != null) {
                    sock.send(input.value);
                    input.value = "";
                }
                return false;
            }

            window.onload = connect;
        </script>
    </head>
    <body>
        <div id="chatbox" class="chatbox"></div>
        <form onsubmit="return sendLine();">
            <input type="hidden" id="nonce" value="{{.Nonce}}" />
            <input type="text" id="line" class="textbox" />
            <input type="submit" value="Send" class="button" />
        </form>
    </body>
</html>
`))
