package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"aniflixx/engage/pkg/logging"

	"github.com/gorilla/websocket"
)

// Message types pushed to subscribed clients.
const (
	MessageEngagementUpdate = "engagement_update"
	MessageViewerCount      = "viewer_count"
)

// Hub maintains the set of connected clients and fans out per-entity updates.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	logger     logging.Logger
	mutex      sync.RWMutex
}

// Client represents a WebSocket client connection.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	logger logging.Logger

	// entityMu guards entities: the read pump mutates subscriptions while
	// the hub goroutine fans out broadcasts.
	entityMu sync.RWMutex
	entities map[string]bool
}

func (c *Client) subscribedTo(entityID string) bool {
	c.entityMu.RLock()
	defer c.entityMu.RUnlock()
	return c.entities[entityID]
}

// Message is the envelope for every update pushed to clients.
type Message struct {
	Type      string                 `json:"type"`
	EntityID  string                 `json:"entity_id"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

// SubscriptionMessage is the request clients send to manage their subscriptions.
type SubscriptionMessage struct {
	Action   string   `json:"action"` // "subscribe" or "unsubscribe"
	Entities []string `json:"entities"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NewHub creates a new WebSocket hub
func NewHub(logger logging.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			h.logger.WithFields(logging.Fields{
				"client_count": len(h.clients),
			}).Info("Client connected")

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mutex.Unlock()
			h.logger.WithFields(logging.Fields{
				"client_count": len(h.clients),
			}).Info("Client disconnected")

		case message := <-h.broadcast:
			h.fanOut(message)
		}
	}
}

// fanOut sends a message to every client subscribed to its entity.
func (h *Hub) fanOut(message []byte) {
	var msg Message
	if err := json.Unmarshal(message, &msg); err != nil {
		h.logger.WithError(err).Error("Failed to unmarshal broadcast message")
		return
	}

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for client := range h.clients {
		if !client.subscribedTo(msg.EntityID) {
			continue
		}

		select {
		case client.send <- message:
		default:
			close(client.send)
			delete(h.clients, client)
		}
	}
}

// BroadcastEntityUpdate pushes an update for a single entity to its subscribers.
func (h *Hub) BroadcastEntityUpdate(msgType, entityID string, data map[string]interface{}) {
	message := Message{
		Type:      msgType,
		EntityID:  entityID,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}

	messageJSON, err := json.Marshal(message)
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal entity update")
		return
	}

	select {
	case h.broadcast <- messageJSON:
	default:
		h.logger.Warn("Broadcast channel full, dropping message")
	}
}

// GetStats returns hub statistics
func (h *Hub) GetStats() map[string]interface{} {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	entityStats := make(map[string]int)
	for client := range h.clients {
		for _, entityID := range client.subscribedEntities() {
			entityStats[entityID]++
		}
	}

	return map[string]interface{}{
		"total_clients":        len(h.clients),
		"entity_subscriptions": entityStats,
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// ServeWS handles WebSocket requests from clients
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to upgrade WebSocket connection")
		return
	}

	client := &Client{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, 256),
		entities: make(map[string]bool),
		logger:   h.logger,
	}

	client.hub.register <- client

	// Start goroutines for reading and writing
	go client.writePump()
	go client.readPump()
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.WithError(err).Error("WebSocket connection error")
			}
			break
		}

		var subMsg SubscriptionMessage
		if err := json.Unmarshal(message, &subMsg); err != nil {
			c.logger.WithError(err).Warn("Invalid subscription message")
			continue
		}

		c.handleSubscription(&subMsg)
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Drain any queued updates into the same frame
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleSubscription processes subscription/unsubscription requests
func (c *Client) handleSubscription(msg *SubscriptionMessage) {
	switch msg.Action {
	case "subscribe":
		c.entityMu.Lock()
		for _, entityID := range msg.Entities {
			c.entities[entityID] = true
		}
		c.entityMu.Unlock()
		c.logger.WithFields(logging.Fields{
			"entities": msg.Entities,
		}).Info("Client subscribed to entities")

		c.sendMessage(map[string]interface{}{
			"type":     "subscription_confirmed",
			"entities": c.subscribedEntities(),
		})

	case "unsubscribe":
		c.entityMu.Lock()
		for _, entityID := range msg.Entities {
			delete(c.entities, entityID)
		}
		c.entityMu.Unlock()
		c.logger.WithFields(logging.Fields{
			"unsubscribed": msg.Entities,
		}).Info("Client unsubscribed from entities")

		c.sendMessage(map[string]interface{}{
			"type":     "unsubscription_confirmed",
			"entities": c.subscribedEntities(),
		})
	}
}

func (c *Client) subscribedEntities() []string {
	c.entityMu.RLock()
	defer c.entityMu.RUnlock()
	out := make([]string, 0, len(c.entities))
	for entityID := range c.entities {
		out = append(out, entityID)
	}
	return out
}

// sendMessage sends a message to the client
func (c *Client) sendMessage(data map[string]interface{}) {
	message, err := json.Marshal(data)
	if err != nil {
		c.logger.WithError(err).Error("Failed to marshal client message")
		return
	}

	select {
	case c.send <- message:
	default:
		close(c.send)
	}
}
