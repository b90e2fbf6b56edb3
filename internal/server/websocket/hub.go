package websocket

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tradepulse/custody/internal/domain"
)

// StatusEvent is pushed to connected operator dashboards.
type StatusEvent struct {
	Type       string              `json:"type"`
	Withdrawal *domain.Withdrawal  `json:"withdrawal,omitempty"`
	Retry      *domain.RetryRecord `json:"retry,omitempty"`
	At         time.Time           `json:"at"`
}

// Hub fans withdrawal transitions and dead-letter alerts out to operator
// connections. Broadcasts never block callers: the channel is buffered and
// overflow is dropped with a log line.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan StatusEvent
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	logger     zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan StatusEvent, 256),
		register:   make(chan *websocket.Conn, 16),
		unregister: make(chan *websocket.Conn, 16),
		logger:     logger,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.clients[conn] = true
			h.logger.Info().Int("connections", len(h.clients)).Msg("Operator dashboard connected")

		case conn := <-h.unregister:
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
				h.logger.Info().Int("connections", len(h.clients)).Msg("Operator dashboard disconnected")
			}

		case event := <-h.broadcast:
			for conn := range h.clients {
				if err := conn.WriteJSON(event); err != nil {
					h.logger.Warn().Err(err).Msg("Failed to push status event, dropping connection")
					delete(h.clients, conn)
					conn.Close()
				}
			}
		}
	}
}

func (h *Hub) Register(conn *websocket.Conn) {
	h.register <- conn
}

func (h *Hub) Unregister(conn *websocket.Conn) {
	h.unregister <- conn
}

// WithdrawalUpdated implements interfaces.StatusBroadcaster.
func (h *Hub) WithdrawalUpdated(w *domain.Withdrawal) {
	h.push(StatusEvent{Type: "withdrawal", Withdrawal: w, At: time.Now()})
}

// DeadLettered implements interfaces.StatusBroadcaster.
func (h *Hub) DeadLettered(r *domain.RetryRecord) {
	h.push(StatusEvent{Type: "dead_letter", Retry: r, At: time.Now()})
}

func (h *Hub) push(event StatusEvent) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn().Str("type", event.Type).Msg("Status broadcast buffer full, event dropped")
	}
}
