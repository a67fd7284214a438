package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"friendgraph/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS middleware decides which origins reach us
	},
}

// Client represents a WebSocket client
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	UserID int64
}

// BroadcastPayload is a message addressed to every connection of one user
type BroadcastPayload struct {
	UserID  int64
	Message []byte
}

// FriendLister returns the friends of a user; used for presence updates
type FriendLister func(ctx context.Context, userID int64) ([]int64, error)

// Hub maintains the set of active clients and fans friendship events out
// to them. A user may hold several connections at once.
type Hub struct {
	clients    map[int64]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan BroadcastPayload
	done       chan struct{}
	friendsOf  FriendLister
	mutex      sync.RWMutex
}

// NewHub creates a hub. friendsOf may be nil, which disables presence
// updates.
func NewHub(friendsOf FriendLister) *Hub {
	return &Hub{
		clients:    make(map[int64]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan BroadcastPayload, sendBufferSize),
		done:       make(chan struct{}),
		friendsOf:  friendsOf,
	}
}

// Run processes registrations and broadcasts until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mutex.Lock()
			conns, ok := h.clients[client.UserID]
			if !ok {
				conns = make(map[*Client]struct{})
				h.clients[client.UserID] = conns
			}
			conns[client] = struct{}{}
			first := len(conns) == 1
			h.mutex.Unlock()

			logrus.WithFields(logrus.Fields{
				"function": "Hub.Run",
				"user_id":  client.UserID,
			}).Info("Client connected")

			if first {
				go h.broadcastOnlineStatus(ctx, client.UserID)
			}

		case client := <-h.unregister:
			h.mutex.Lock()
			last := false
			if conns, ok := h.clients[client.UserID]; ok {
				if _, ok := conns[client]; ok {
					delete(conns, client)
					close(client.send)
				}
				if len(conns) == 0 {
					delete(h.clients, client.UserID)
					last = true
				}
			}
			h.mutex.Unlock()

			logrus.WithFields(logrus.Fields{
				"function": "Hub.Run",
				"user_id":  client.UserID,
			}).Info("Client disconnected")

			if last {
				go h.broadcastOnlineStatus(ctx, client.UserID)
			}

		case payload := <-h.broadcast:
			h.deliver(payload.UserID, payload.Message)
		}
	}
}

func (h *Hub) shutdown() {
	close(h.done)
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for userID, conns := range h.clients {
		for client := range conns {
			close(client.send)
		}
		delete(h.clients, userID)
	}
}

// deliver hands message to every connection of userID, dropping
// connections whose buffer is full
func (h *Hub) deliver(userID int64, message []byte) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for client := range h.clients[userID] {
		select {
		case client.send <- message:
		default:
			close(client.send)
			delete(h.clients[userID], client)
		}
	}
	if len(h.clients[userID]) == 0 {
		delete(h.clients, userID)
	}
}

// IsUserOnline checks if a user is currently connected
func (h *Hub) IsUserOnline(userID int64) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients[userID]) > 0
}

// Notify sends a message to a specific user. It never blocks; when the
// broadcast queue is full the message is dropped.
func (h *Hub) Notify(userID int64, msg models.WebSocketMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Hub.Notify",
			"type":     msg.Type,
			"error":    err.Error(),
		}).Error("Error marshaling message")
		return
	}

	select {
	case h.broadcast <- BroadcastPayload{UserID: userID, Message: data}:
	default:
		logrus.WithFields(logrus.Fields{
			"function": "Hub.Notify",
			"user_id":  userID,
			"type":     msg.Type,
		}).Warn("Broadcast queue full, dropping message")
	}
}

// broadcastOnlineStatus tells the user's friends whether the user is online.
// It runs outside the hub loop and reports the state at send time, so a
// slow lookup can neither stall deliveries nor publish a stale status.
func (h *Hub) broadcastOnlineStatus(ctx context.Context, userID int64) {
	if h.friendsOf == nil {
		return
	}

	lookupCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	friends, err := h.friendsOf(lookupCtx, userID)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "broadcastOnlineStatus",
			"user_id":  userID,
			"error":    err.Error(),
		}).Warn("Failed to load friends for presence update")
		return
	}

	msg := models.WebSocketMessage{
		Type: models.EventOnlineStatus,
		Payload: map[string]interface{}{
			"user_id": userID,
			"online":  h.IsUserOnline(userID),
		},
	}
	for _, friendID := range friends {
		h.Notify(friendID, msg)
	}
}

// Serve upgrades the request and attaches the connection to userID
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID int64) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Hub.Serve",
			"error":    err.Error(),
		}).Warn("WebSocket upgrade error")
		return
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		UserID: userID,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	// Start goroutines for reading and writing
	go client.writePump()
	go client.readPump()
}

// readPump only watches for close and pong frames; clients do not send
// application messages
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithFields(logrus.Fields{
					"function": "readPump",
					"user_id":  c.UserID,
					"error":    err.Error(),
				}).Warn("WebSocket error")
			}
			return
		}
	}
}

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
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
