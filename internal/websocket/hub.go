// Package websocket pushes collection change signals, reminder notifications
// and live search state to browser tabs.
//
// A Hub owns the change-stream clients on /ws: every key published on the
// event bus is rebroadcast as a "storage" message so that other tabs reload,
// and due reminders arrive as "reminder" messages. Search sessions on
// /ws/search are not hub members; each one drives its own search engine.
package websocket

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/AtharvRaotole/reel-picks/internal/events"
	"github.com/AtharvRaotole/reel-picks/internal/models"
)

const (
	MessageTypeStorage     = "storage"
	MessageTypeReminder    = "reminder"
	MessageTypeSearchState = "search_state"
	MessageTypeError       = "error"
	MessageTypePing        = "ping"
	MessageTypePong        = "pong"
)

// ErrBroadcastFull is returned when the broadcast queue cannot take a message.
var ErrBroadcastFull = errors.New("websocket broadcast queue full")

// Message is the envelope for every frame sent to a tab.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// StorageEvent tells a tab that the value under Key changed.
type StorageEvent struct {
	Key string `json:"key"`
}

// ReminderEvent is the notification payload for a due reminder.
type ReminderEvent struct {
	MovieID      models.MovieID `json:"movieId"`
	Title        string         `json:"title"`
	Body         string         `json:"body"`
	ReminderTime time.Time      `json:"reminderTime"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
	HandshakeTimeout: 10 * time.Second,
}

// Hub tracks change-stream clients and fans messages out to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	logger     *logrus.Logger
}

// NewHub creates a hub. Run must be started before clients connect.
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run processes registrations and broadcasts until ctx is cancelled, then
// closes every client.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			n := h.closeAllClients()
			h.logger.WithField("clients_closed", n).Info("Websocket hub stopped")
			return ctx.Err()

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.WithFields(logrus.Fields{
				"client_id":     client.id,
				"total_clients": total,
			}).Debug("Websocket client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.WithFields(logrus.Fields{
				"client_id":     client.id,
				"total_clients": total,
			}).Debug("Websocket client disconnected")

		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

// ClientCount returns the number of connected change-stream clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues a message for every client. It never blocks.
func (h *Hub) Broadcast(messageType string, data any) error {
	select {
	case h.broadcast <- Message{Type: messageType, Data: data}:
		return nil
	default:
		h.logger.WithField("message_type", messageType).Warn("Broadcast queue full, dropping message")
		return ErrBroadcastFull
	}
}

// ForwardBus rebroadcasts every key published on bus. The returned function
// stops forwarding.
func (h *Hub) ForwardBus(bus *events.Bus) func() {
	return bus.SubscribeAll(func(key string) {
		_ = h.Broadcast(MessageTypeStorage, StorageEvent{Key: key})
	})
}

// NotifyReminder sends a reminder notification to every tab.
func (h *Hub) NotifyReminder(_ context.Context, r models.Reminder) error {
	return h.Broadcast(MessageTypeReminder, ReminderEvent{
		MovieID:      r.MovieID,
		Title:        r.MovieTitle,
		Body:         "Time to watch " + r.MovieTitle,
		ReminderTime: r.ReminderTime,
	})
}

// ServeHTTP upgrades the request and registers the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	client := newClient(h, conn)
	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.Close()
		return
	}
	go client.writePump()
	go client.readPump()
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.sortedClientsLocked() {
		select {
		case client.send <- message:
		default:
			// Slow client: drop it rather than stall the others.
			close(client.send)
			delete(h.clients, client)
		}
	}
}

func (h *Hub) closeAllClients() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.sortedClientsLocked()
	for _, client := range clients {
		close(client.send)
		delete(h.clients, client)
	}
	return len(clients)
}

func (h *Hub) sortedClientsLocked() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	return clients
}
