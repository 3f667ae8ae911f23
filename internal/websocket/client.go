package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

// sendBuffer is how many events may wait for a slow device before the
// manager drops it.
const sendBuffer = 64

// Client is one open connection of a user's device.
type Client struct {
	ID       string
	UserID   string
	DeviceID string
	Conn     *websocket.Conn
	Manager  *Manager
	Send     chan []byte
}

func NewClient(id, userID, deviceID string, conn *websocket.Conn, manager *Manager) *Client {
	return &Client{
		ID:       id,
		UserID:   userID,
		DeviceID: deviceID,
		Conn:     conn,
		Manager:  manager,
		Send:     make(chan []byte, sendBuffer),
	}
}

func (c *Client) extendReadDeadline() error {
	return c.Conn.SetReadDeadline(time.Now().Add(c.Manager.pongWait))
}

// ReadPump forwards inbound frames to the manager until the connection
// fails, then unregisters the client.
func (c *Client) ReadPump() {
	defer func() {
		c.Manager.Unregister(c)
		c.Conn.Close()
	}()

	if c.Manager.maxMessageSize > 0 {
		c.Conn.SetReadLimit(c.Manager.maxMessageSize)
	}
	c.extendReadDeadline()
	c.Conn.SetPongHandler(func(string) error { return c.extendReadDeadline() })

	for {
		_, payload, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Manager.logger.Warn("websocket closed unexpectedly",
					"client", c.ID, "user", c.UserID, "device", c.DeviceID, "error", err)
			}
			return
		}
		c.Manager.HandleMessage(&ClientMessage{Client: c, Message: payload})
	}
}

// WritePump sends each queued event as its own text frame and pings the
// device every pingPeriod.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.Manager.pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
