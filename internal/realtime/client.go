package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/gaming-workshop/backend/internal/workshop"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins in dev; restrict in production
	},
}

// Message is the WebSocket message envelope.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client is a single WebSocket connection watching one date's slot grid.
type Client struct {
	ID   string
	Date string
	hub  *Hub
	conn *websocket.Conn
	send chan Message
}

// Occupancy supplies the current occupancy map for a date, sent to a client
// right after it joins so the grid renders without waiting for a change.
type Occupancy func(date string) (map[string]int, error)

// ServeWs upgrades the connection and runs the client loop. The date to watch
// comes from the query string.
func ServeWs(hub *Hub, logger *zap.Logger, occupancy Occupancy) gin.HandlerFunc {
	return func(c *gin.Context) {
		date := c.Query("date")
		if !workshop.ContainsDate(date) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must fall inside the workshop period"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:   uuid.New().String(),
			Date: date,
			hub:  hub,
			conn: conn,
			send: make(chan Message, 64),
		}
		hub.Register(client)

		if occupancy != nil {
			if occ, err := occupancy(date); err == nil {
				data, _ := json.Marshal(occ)
				client.send <- Message{Event: "occupancy", Data: data}
			}
		}

		go client.writePump()
		client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		// clients only listen; drain and ignore anything they send
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
