package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vnkhanh/vocasync/metrics"
	"github.com/vnkhanh/vocasync/models"
)

const (
	sendBuffer = 256
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

type Client struct {
	Conn *websocket.Conn
	Send chan []byte

	subject string
	once    sync.Once
}

// Hub fans sync notifications out to every open connection of a user.
type Hub struct {
	clients map[string]map[*Client]struct{} // by subject
	mu      sync.RWMutex
	logger  *slog.Logger
}

// Stats is a snapshot for the health endpoint.
type Stats struct {
	Subjects int `json:"subjects"`
	Clients  int `json:"clients"`
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{clients: make(map[string]map[*Client]struct{}), logger: logger}
}

// Register attaches conn to subject's room and starts its pumps. The hub owns
// conn from here on.
func (h *Hub) Register(subject string, conn *websocket.Conn) *Client {
	client := &Client{Conn: conn, Send: make(chan []byte, sendBuffer), subject: subject}

	h.mu.Lock()
	if _, ok := h.clients[subject]; !ok {
		h.clients[subject] = make(map[*Client]struct{})
	}
	h.clients[subject][client] = struct{}{}
	h.mu.Unlock()
	metrics.WebsocketClients.Inc()

	go h.readPump(client)
	go h.writePump(client)
	return client
}

// Unregister removes client and closes its send channel. Safe to call twice.
func (h *Hub) Unregister(client *Client) {
	client.once.Do(func() {
		h.mu.Lock()
		defer h.mu.Unlock()

		if clients, ok := h.clients[client.subject]; ok {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.clients, client.subject)
			}
		}
		close(client.Send)
		metrics.WebsocketClients.Dec()
	})
}

// Broadcast queues data for every connection of subject. A client whose
// buffer is full misses the message.
func (h *Hub) Broadcast(subject string, data []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for client := range h.clients[subject] {
		select {
		case client.Send <- data:
			sent++
		default:
			metrics.WebsocketDropped.Inc()
			h.logger.Warn("websocket client too slow, message dropped", "subject", subject)
		}
	}
	return sent
}

// NotifySync tells subject's devices that new data can be pulled.
func (h *Hub) NotifySync(subject string, event models.SyncEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("encode sync event", "err", err)
		return
	}
	h.Broadcast(subject, data)
}

func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	st := Stats{Subjects: len(h.clients)}
	for _, clients := range h.clients {
		st.Clients += len(clients)
	}
	return st
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	var all []*Client
	for _, clients := range h.clients {
		for c := range clients {
			all = append(all, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range all {
		h.Unregister(c)
	}
}

func (h *Hub) readPump(client *Client) {
	defer func() {
		h.Unregister(client)
		client.Conn.Close()
	}()
	client.Conn.SetReadLimit(512)
	_ = client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		return client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *Hub) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()
	for {
		select {
		case msg, ok := <-client.Send:
			_ = client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
