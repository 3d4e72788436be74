// Package server exposes HTTP handlers, including the WebSocket upgrade,
// health check, and the built-in chat page.
package server

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// WebSocketHandler upgrades the HTTP connection, assigns the connection its
// id, and hands it to the hub. The hub launches the pump goroutines.
func WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := NewClient(conn, hub, r.RemoteAddr)
	client.hub.register <- client
}

// HealthHandler provides a simple health check endpoint that returns server status.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Banter chat server is running!")
}

// ChatPageHandler serves the built-in chat client: a name prompt, the
// message pane, the presence list, and a typing indicator that the page
// clears on its own after the expiry window.
func ChatPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	page := strings.ReplaceAll(chatPage, "{{TYPING_EXPIRY_MS}}",
		strconv.FormatInt(typingExpiry.Milliseconds(), 10))
	if _, err := fmt.Fprint(w, page); err != nil {
		log.Printf("Error writing chat page: %v", err)
	}
}

const chatPage = `<!DOCTYPE html>
<html>
<head>
    <title>Banter</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; display: flex; gap: 20px; }
        #chat { flex: 1; }
        #messages {
            border: 1px solid #ccc;
            height: 360px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
        }
        #sidebar { width: 180px; }
        #users { list-style: none; padding: 10px; border: 1px solid #ccc; min-height: 100px; }
        #typing { color: #888; font-style: italic; height: 1.2em; }
        .message { margin: 5px 0; padding: 3px; }
        .message.sent .sender { color: #007cba; }
        .message.received .sender { color: #2e7d32; }
        .message .stamp { color: #999; font-size: 0.8em; margin-left: 8px; }
        .message.system { color: gray; font-style: italic; }
        input[type="text"] { width: 300px; padding: 5px; margin-right: 10px; }
        button {
            padding: 5px 15px;
            background-color: #007cba;
            color: white;
            border: none;
            cursor: pointer;
        }
        button:hover { background-color: #005a87; }
    </style>
</head>
<body>
    <div id="chat">
        <h1>Banter</h1>
        <div id="join-form">
            <input type="text" id="nameInput" placeholder="Pick a name...">
            <button onclick="join()">Join</button>
        </div>
        <div id="messages"></div>
        <div id="typing"></div>
        <div>
            <input type="text" id="messageInput" placeholder="Type a message..." disabled>
            <button id="sendButton" onclick="sendMessage()" disabled>Send</button>
        </div>
    </div>
    <div id="sidebar">
        <h3>Online</h3>
        <ul id="users"></ul>
    </div>

    <script>
        const TYPING_EXPIRY_MS = {{TYPING_EXPIRY_MS}};
        let ws = null;
        let myId = null;
        let myName = null;
        let typingClearTimer = null;
        let lastTypingSent = 0;

        const messagesDiv = document.getElementById('messages');
        const messageInput = document.getElementById('messageInput');
        const sendButton = document.getElementById('sendButton');
        const nameInput = document.getElementById('nameInput');
        const usersList = document.getElementById('users');
        const typingDiv = document.getElementById('typing');

        function join() {
            const name = nameInput.value.trim();
            if (!name) return;
            myName = name;

            const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
            ws = new WebSocket(scheme + location.host + '/ws');

            ws.onopen = function() {
                ws.send(JSON.stringify({ type: 'join', name: name }));
                document.getElementById('join-form').style.display = 'none';
                messageInput.disabled = false;
                sendButton.disabled = false;
                messageInput.focus();
            };
            ws.onmessage = function(event) {
                handleEvent(JSON.parse(event.data));
            };
            ws.onclose = function() {
                addSystemMessage('Disconnected from server');
                messageInput.disabled = true;
                sendButton.disabled = true;
            };
        }

        function handleEvent(evt) {
            switch (evt.type) {
            case 'joined':
                if (myId === null && evt.senderName === myName) {
                    myId = evt.senderId;
                }
                addSystemMessage(evt.message);
                renderUsers(evt.users);
                break;
            case 'presenceList':
                renderUsers(evt.users);
                break;
            case 'message':
                renderMessage(evt);
                break;
            case 'typing':
                typingDiv.textContent = evt.senderName + ' is typing...';
                clearTimeout(typingClearTimer);
                typingClearTimer = setTimeout(function() {
                    typingDiv.textContent = '';
                }, TYPING_EXPIRY_MS);
                break;
            case 'left':
                addSystemMessage(evt.message);
                break;
            }
        }

        function sendMessage() {
            const body = messageInput.value.trim();
            if (!body || !ws || ws.readyState !== WebSocket.OPEN) return;
            ws.send(JSON.stringify({ type: 'chat', body: body }));
            messageInput.value = '';
        }

        messageInput.addEventListener('keypress', function(e) {
            if (e.key === 'Enter') {
                sendMessage();
                return;
            }
            if (ws && ws.readyState === WebSocket.OPEN && Date.now() - lastTypingSent > 1000) {
                ws.send(JSON.stringify({ type: 'typingStart' }));
                lastTypingSent = Date.now();
            }
        });

        nameInput.addEventListener('keypress', function(e) {
            if (e.key === 'Enter') join();
        });

        function renderMessage(evt) {
            const el = document.createElement('div');
            el.className = 'message ' + (evt.senderId === myId ? 'sent' : 'received');

            const sender = document.createElement('span');
            sender.className = 'sender';
            sender.textContent = evt.senderName;

            const stamp = document.createElement('span');
            stamp.className = 'stamp';
            stamp.textContent = evt.timestamp;

            const body = document.createElement('div');
            body.textContent = evt.body;

            el.appendChild(sender);
            el.appendChild(stamp);
            el.appendChild(body);
            messagesDiv.appendChild(el);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        }

        function addSystemMessage(text) {
            const el = document.createElement('div');
            el.className = 'message system';
            el.textContent = text;
            messagesDiv.appendChild(el);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        }

        function renderUsers(users) {
            usersList.innerHTML = '';
            users.forEach(function(user) {
                const li = document.createElement('li');
                li.textContent = user;
                usersList.appendChild(li);
            });
        }
    </script>
</body>
</html>`
