package websocket

import (
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

var clientIDCounter atomic.Uint64

// inbound is a frame received from a tab.
type inbound struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Client is one change-stream connection.
type Client struct {
	id   uint64
	hub  *Hub
	conn *websocket.Conn
	send chan Message
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:   clientIDCounter.Add(1),
		hub:  hub,
		conn: conn,
		send: make(chan Message, 64),
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		_ = c.conn.Close()
	}()

	readLoop(c.conn, c.hub.logger, func(msg inbound) {
		if msg.Type == MessageTypePing {
			select {
			case c.send <- Message{Type: MessageTypePong}:
			default:
			}
		}
	})
}

func (c *Client) writePump() {
	writePump(c.conn, c.send, c.hub.logger)
}

// readLoop decodes frames from conn until it fails or closes.
func readLoop(conn *websocket.Conn, logger *logrus.Logger, handle func(inbound)) {
	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				logger.WithError(err).Debug("Unexpected websocket close")
			}
			return
		}
		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.WithError(err).Debug("Ignoring malformed websocket frame")
			continue
		}
		handle(msg)
	}
}

// writePump drains send to conn and keeps the connection alive with pings.
// A closed send channel ends the connection with a close frame.
func writePump(conn *websocket.Conn, send <-chan Message, logger *logrus.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case message, ok := <-send:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			data, err := json.Marshal(message)
			if err != nil {
				logger.WithError(err).WithField("message_type", message.Type).Error("Failed to encode websocket message")
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
