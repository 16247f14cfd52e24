package agentd

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"roomkey/internal/logger"
)

const (
	writeWait      = 10 * time.Second
	clientSendBuf  = 16
	maxMessageSize = 512
)

// The progress socket is served only on the loopback interface to the
// agent's own UI, so cross-origin checks are relaxed.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans sequencer progress out to every connected UI client. Broadcasts
// are best-effort: a slow client is dropped rather than allowed to stall
// card programming.
type Hub struct {
	mu      sync.RWMutex
	clients map[*hubClient]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*hubClient]struct{})}
}

// Broadcast sends a JSON-encoded message to all connected clients.
func (h *Hub) Broadcast(message interface{}) {
	raw, err := json.Marshal(message)
	if err != nil {
		logger.Error("failed to marshal progress message", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- raw:
		default:
			// Slow consumer; its writer goroutine will clean up.
		}
	}
}

// ClientCount returns the number of connected UI clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve upgrades the HTTP request and pumps messages until the client
// disconnects.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &hubClient{
		conn: conn,
		send: make(chan []byte, clientSendBuf),
	}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	go h.writePump(client)
	h.readPump(client)
}

func (h *Hub) writePump(client *hubClient) {
	for raw := range client.send {
		client.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
			break
		}
	}
	client.conn.Close()
}

// readPump discards inbound messages; the progress socket is one-way. It
// exists to detect disconnects promptly.
func (h *Hub) readPump(client *hubClient) {
	defer func() {
		h.mu.Lock()
		delete(h.clients, client)
		h.mu.Unlock()
		close(client.send)
		client.conn.Close()
	}()

	client.conn.SetReadLimit(maxMessageSize)
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}
