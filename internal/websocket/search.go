package websocket

import (
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/AtharvRaotole/reel-picks/internal/metrics"
	"github.com/AtharvRaotole/reel-picks/internal/search"
)

const (
	searchTypeQuery  = "query"
	searchTypeSearch = "search"
	searchTypeClear  = "clear"
)

// SearchHandler serves /ws/search. Each connection gets its own search
// engine, which is closed when the connection ends.
type SearchHandler struct {
	catalog search.Catalog
	opts    search.Options
	logger  *logrus.Logger
}

// NewSearchHandler creates the search session endpoint.
func NewSearchHandler(catalog search.Catalog, opts search.Options, logger *logrus.Logger) *SearchHandler {
	return &SearchHandler{catalog: catalog, opts: opts, logger: logger}
}

func (h *SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	s := &searchSession{
		id:     clientIDCounter.Add(1),
		send:   make(chan Message, 64),
		engine: search.NewEngine(h.catalog, h.opts, h.logger),
		logger: h.logger,
	}
	metrics.SearchSessions.Inc()
	h.logger.WithField("session_id", s.id).Debug("Search session opened")

	unsubscribe := s.engine.Subscribe(s.pushState)
	s.pushState(s.engine.State())

	go writePump(conn, s.send, h.logger)
	go func() {
		defer func() {
			unsubscribe()
			s.engine.Close()
			s.close()
			metrics.SearchSessions.Dec()
			h.logger.WithField("session_id", s.id).Debug("Search session closed")
		}()
		readLoop(conn, h.logger, s.handle)
	}()
}

type searchSession struct {
	id     uint64
	engine *search.Engine
	logger *logrus.Logger

	mu     sync.Mutex
	send   chan Message
	closed bool
}

func (s *searchSession) handle(msg inbound) {
	switch msg.Type {
	case searchTypeQuery:
		s.engine.SetQuery(msg.Text)
	case searchTypeSearch:
		s.engine.Search(msg.Text)
	case searchTypeClear:
		s.engine.ClearSearch()
	case MessageTypePing:
		s.push(Message{Type: MessageTypePong})
	default:
		s.push(Message{Type: MessageTypeError, Data: "unknown message type: " + msg.Type})
	}
}

func (s *searchSession) pushState(state search.State) {
	s.push(Message{Type: MessageTypeSearchState, Data: state})
}

func (s *searchSession) push(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.send <- m:
	default:
		s.logger.WithFields(logrus.Fields{
			"session_id":   s.id,
			"message_type": m.Type,
		}).Warn("Search session send queue full, dropping message")
	}
}

func (s *searchSession) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.send)
	}
}
