package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	broadcastBuffer = 256
	clientBuffer    = 64

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins; the token query param is the gate
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// allowedRoles may subscribe to verification events.
var allowedRoles = map[string]bool{middleware.RoleAdmin: true, middleware.RoleQA: true}

// Event is the envelope pushed to dashboards.
type Event struct {
	Event     string      `json:"event"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

// Client represents a single connected WebSocket client
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn
	Send chan []byte
}

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	clients    map[*Client]bool
	Broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex
	logger     *zap.Logger
}

// NewHub initializes a new WS Hub instance
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		Broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		logger:     logger,
	}
}

// Run dispatches registrations and events until the process exits. A client
// whose send queue is full is dropped rather than slowing every dashboard.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("websocket client connected", zap.Int("clients", n))
		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()
		case message := <-h.Broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					h.logger.Warn("websocket client too slow, disconnecting")
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with h.mu held.
func (h *Hub) remove(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)
	h.logger.Debug("websocket client disconnected", zap.Int("clients", len(h.clients)))
}

// Publish queues an event for every client. It never blocks; events are
// dropped when the queue is full.
func (h *Hub) Publish(event string, payload interface{}) {
	msg, err := json.Marshal(Event{Event: event, Data: payload, Timestamp: time.Now().UTC().Format(time.RFC3339)})
	if err != nil {
		h.logger.Warn("failed to encode websocket event", zap.String("event", event), zap.Error(err))
		return
	}
	select {
	case h.Broadcast <- msg:
	default:
		h.logger.Warn("websocket broadcast queue full, event dropped", zap.String("event", event))
	}
}

// ClientCount is the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// writePump sends each event as its own text frame and pings the peer so
// idle dashboards are detected.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only drains the connection; clients never send commands. A peer
// that stops answering pings is unregistered after pongWait.
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		_ = c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}
	}
}

// ServeWs handles websocket requests from the peer
func ServeWs(hub *Hub, c *gin.Context, secret []byte) {
	// browsers cannot set headers on the upgrade request
	tokenString := c.Query("token")
	if tokenString == "" {
		hub.logger.Info("websocket connection rejected: missing token")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	claims, err := middleware.ParseToken(tokenString, secret)
	if err != nil {
		hub.logger.Info("websocket connection rejected: invalid token", zap.Error(err))
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	if !allowedRoles[claims.Role] {
		hub.logger.Info("websocket connection rejected: inadequate permissions", zap.String("role", claims.Role))
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		hub.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	client := &Client{Hub: hub, Conn: conn, Send: make(chan []byte, clientBuffer)}
	hub.register <- client

	go client.writePump()
	go client.readPump()
}
