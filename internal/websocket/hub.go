package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/playoff-sim/internal/bracket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ProgressUpdate is the message pushed to subscribers while a run executes
type ProgressUpdate struct {
	Type      string `json:"type"`
	RunID     string `json:"run_id"`
	Percent   int    `json:"percent"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}

// Client is one websocket connection. An empty RunID receives every run.
type Client struct {
	RunID string
	Conn  *websocket.Conn
	Send  chan []byte
	Hub   *Hub
}

// Hub fans engine progress out to websocket subscribers
type Hub struct {
	clients    map[*Client]bool
	runClients map[string][]*Client
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	logger     *logrus.Logger
	mutex      sync.RWMutex
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		runClients: make(map[string][]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run handles client registration until Shutdown is called
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.runClients[client.RunID] = append(h.runClients[client.RunID], client)
			total := len(h.clients)
			h.mutex.Unlock()

			h.logger.WithFields(logrus.Fields{
				"run_id":        client.RunID,
				"total_clients": total,
			}).Debug("WebSocket client connected")

		case client := <-h.unregister:
			h.remove(client)

		case <-h.done:
			h.mutex.Lock()
			for client := range h.clients {
				close(client.Send)
			}
			h.clients = make(map[*Client]bool)
			h.runClients = make(map[string][]*Client)
			h.mutex.Unlock()
			return
		}
	}
}

// Shutdown stops Run and closes every client
func (h *Hub) Shutdown() {
	close(h.done)
}

func (h *Hub) remove(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)

	subscribers := h.runClients[client.RunID]
	for i, c := range subscribers {
		if c == client {
			h.runClients[client.RunID] = append(subscribers[:i], subscribers[i+1:]...)
			break
		}
	}
	if len(h.runClients[client.RunID]) == 0 {
		delete(h.runClients, client.RunID)
	}

	h.logger.WithFields(logrus.Fields{
		"run_id":        client.RunID,
		"total_clients": len(h.clients),
	}).Debug("WebSocket client disconnected")
}

// HandleWebSocket upgrades the request and subscribes it to the run named by
// the run_id path parameter, or to every run when the parameter is absent.
func (h *Hub) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to upgrade WebSocket connection")
		return
	}

	client := &Client{
		RunID: c.Param("run_id"),
		Conn:  conn,
		Send:  make(chan []byte, 256),
		Hub:   h,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// PublishProgress sends a progress update to subscribers of runID and to
// clients watching every run. Updates for a client whose buffer is full are
// dropped, since a later update supersedes them.
func (h *Hub) PublishProgress(runID string, p bracket.Progress) {
	h.publish(runID, ProgressUpdate{
		Type:      "progress",
		RunID:     runID,
		Percent:   p.Percent,
		Completed: p.Completed,
		Total:     p.Total,
	})
}

// PublishEvent sends a lifecycle message, such as run completion, to
// subscribers of runID and to clients watching every run.
func (h *Hub) PublishEvent(runID string, message interface{}) {
	h.publish(runID, message)
}

func (h *Hub) publish(runID string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal WebSocket message")
		return
	}

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	targets := h.runClients[runID]
	if runID != "" {
		targets = append(targets[:len(targets):len(targets)], h.runClients[""]...)
	}
	for _, client := range targets {
		select {
		case client.Send <- data:
		default:
			h.logger.WithField("run_id", runID).Debug("Dropping update for slow WebSocket client")
		}
	}
}

// GetConnectionCount returns the total number of active connections
func (h *Hub) GetConnectionCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// SubscriberCount returns the number of clients subscribed to runID
func (h *Hub) SubscriberCount(runID string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.runClients[runID])
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(512)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.WithError(err).Error("WebSocket error")
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.Hub.logger.WithError(err).Error("Failed to write WebSocket message")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
