package websocket

import (
	"encoding/json"
	"log"
	"time"

	gorilla "github.com/gorilla/websocket"
)

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

// Identity is the authenticated owner of a connection.
type Identity struct {
	Kind string
	ID   int
}

// clientEvent is what a connected client may send: joining or leaving a
// report room while viewing its chat.
type clientEvent struct {
	Type     string `json:"type"`
	ReportID int    `json:"report_id"`
}

// Client is a single live transport connection.
type Client struct {
	hub      *Hub
	conn     *gorilla.Conn
	send     chan []byte
	identity Identity
}

// NewClient creates a client for an upgraded connection.
func NewClient(hub *Hub, conn *gorilla.Conn, identity Identity) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, 64),
		identity: identity,
	}
}

// Identity returns the connection's authenticated identity.
func (c *Client) Identity() Identity {
	return c.identity
}

// ReadPump reads client events until the connection drops, then unregisters
// the client. Room cleanup on disconnect needs no explicit leave from the
// client.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if gorilla.IsUnexpectedCloseError(err, gorilla.CloseGoingAway, gorilla.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			return
		}

		var event clientEvent
		if err := json.Unmarshal(data, &event); err != nil {
			log.Printf("Ignoring malformed client event: %v", err)
			continue
		}

		switch event.Type {
		case "join_report":
			if event.ReportID > 0 {
				c.hub.Join(c, RoomReport(event.ReportID))
			}
		case "leave_report":
			if event.ReportID > 0 {
				c.hub.Leave(c, RoomReport(event.ReportID))
			}
		}
	}
}

// WritePump writes queued events to the connection and keeps it alive with
// pings.
func (c *Client) WritePump() {
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
				// The hub closed the channel
				c.conn.WriteMessage(gorilla.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(gorilla.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(gorilla.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
