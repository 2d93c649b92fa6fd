// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, and the built-in test page.
package server

import (
	"fmt"
	"net/http"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
)

const healthMessage = "Relay server is running!"

func (h *Hub) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.origins.checkOrigin,
	}
}

// WebSocketHandler returns the handler that upgrades a request and hands the
// connection to hub. Non-GET requests are refused before upgrading.
func WebSocketHandler(hub *Hub) http.HandlerFunc {
	upgrader := hub.upgrader()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			glog.Warningf("WebSocket upgrade failed: %v", err)
			return
		}

		if err := hub.Serve(conn, r.RemoteAddr); err != nil {
			glog.Infof("Refused connection from %s: %v", r.RemoteAddr, err)
		}
	}
}

// RootHandler upgrades WebSocket requests on "/" and answers everything else
// with the health check, so clients can connect to the bare host.
func RootHandler(hub *Hub) http.HandlerFunc {
	ws := WebSocketHandler(hub)
	return func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) {
			ws(w, r)
			return
		}
		HealthHandler(w, r)
	}
}

// HealthHandler provides a simple health check endpoint that returns server status.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprint(w, healthMessage)
}

// TestPageHandler serves an HTML page that connects to the relay, optionally
// sends the password frame, and shows relayed envelopes.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if _, err := fmt.Fprint(w, testPage); err != nil {
		glog.Warningf("Error writing HTML response: %v", err)
	}
}

const testPage = `<!DOCTYPE html>
<html>
<head>
    <title>Relay WebSocket Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #messages { border: 1px solid #ccc; height: 300px; padding: 10px; overflow-y: scroll; margin: 10px 0; }
        input[type="text"], input[type="password"] { width: 300px; padding: 5px; margin-right: 10px; }
    </style>
</head>
<body>
    <h1>Relay WebSocket Test</h1>
    <div>
        <input type="password" id="hashInput" placeholder="Password hash (leave empty if auth is off)">
        <button id="connectButton" onclick="toggleConnection()">Connect</button>
    </div>
    <div>
        <input type="text" id="messageInput" placeholder="Type a message..." disabled>
        <button id="sendButton" onclick="sendMessage()" disabled>Send</button>
    </div>
    <div id="messages"></div>

    <script>
        let ws = null;
        const messagesDiv = document.getElementById('messages');
        const messageInput = document.getElementById('messageInput');
        const sendButton = document.getElementById('sendButton');
        const connectButton = document.getElementById('connectButton');

        function addMessage(text) {
            const el = document.createElement('div');
            el.textContent = text;
            messagesDiv.appendChild(el);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        }

        function setConnected(connected) {
            messageInput.disabled = !connected;
            sendButton.disabled = !connected;
            connectButton.textContent = connected ? 'Disconnect' : 'Connect';
        }

        function toggleConnection() {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.close();
                return;
            }
            const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
            ws = new WebSocket(scheme + location.host + '/ws');
            ws.onopen = function() {
                const hash = document.getElementById('hashInput').value;
                if (hash) {
                    ws.send('password: ' + hash);
                }
                addMessage('Connected');
                setConnected(true);
            };
            ws.onmessage = function(event) { addMessage(event.data); };
            ws.onclose = function() { addMessage('Connection closed'); setConnected(false); ws = null; };
        }

        function sendMessage() {
            const message = messageInput.value;
            if (message && ws && ws.readyState === WebSocket.OPEN) {
                ws.send(message);
                addMessage('You: ' + message);
                messageInput.value = '';
            }
        }
    </script>
</body>
</html>`
