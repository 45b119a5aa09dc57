// Package websocket pushes live updates to connected dashboard
// clients: pipeline stage progress during a dataset reload, the
// reload outcome, and refresh hints after the canonical table
// changes. The hub fans broadcasts out to every client; slow clients
// are disconnected rather than allowed to stall the rest.
package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"engineatlas/pkg/contracts/events"
)

// Hub maintains the set of active clients and broadcasts messages to
// them. Register, unregister and broadcast all flow through Run's
// select loop.
type Hub struct {
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu     sync.RWMutex
	logger *slog.Logger

	totalConnections int64
	messagesSent     int64

	quit    chan struct{}
	running bool
}

// NewHub wires the channel set; a nil logger falls back to
// slog.Default().
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		quit:       make(chan struct{}),
	}
}

// Start launches the hub's main loop. Safe to call more than once.
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true
	go h.Run()
}

// Run processes registrations and broadcasts until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			h.logger.Info("hub shutting down")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.totalConnections++
			h.mu.Unlock()

			h.logger.Info("client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			h.welcome(client)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				count := len(h.clients)
				h.mu.Unlock()

				h.logger.Info("client unregistered",
					slog.Int("total_clients", count),
					slog.String("client_id", client.id),
					slog.Duration("connection_duration", time.Since(client.connectedAt)))
			} else {
				h.mu.Unlock()
			}

		case message := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			delivered := 0
			failCount := 0
			for _, client := range clients {
				select {
				case client.send <- message:
					delivered++
				default:
					// Buffer full. Drop the client so one stuck
					// browser tab cannot block the loop.
					failCount++
					h.mu.Lock()
					close(client.send)
					delete(h.clients, client)
					h.mu.Unlock()

					h.logger.Warn("client send buffer full, disconnecting",
						slog.String("client_id", client.id))
				}
			}

			h.mu.Lock()
			h.messagesSent += int64(delivered)
			h.mu.Unlock()

			if failCount > 0 {
				h.logger.Warn("some clients missed a broadcast",
					slog.Int("delivered", delivered),
					slog.Int("dropped", failCount))
			}
		}
	}
}

// welcome sends the connection acknowledgement to a fresh client.
func (h *Hub) welcome(client *Client) {
	msg := events.Message{
		Type:      events.TypeConnection,
		Action:    "connected",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"client_id": client.id,
		},
	}
	jsonData, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case client.send <- jsonData:
	default:
		h.logger.Warn("could not deliver welcome message",
			slog.String("client_id", client.id))
	}
}

// BroadcastUpdate sends an event to all connected clients. It
// implements the Broadcaster interface the dataset service expects:
// eventType names the resource ("dataset", "pipeline"), subtype the
// stage or entity, action the state transition.
func (h *Hub) BroadcastUpdate(eventType, subtype, action string, data interface{}) {
	h.broadcastJSON(events.Message{
		Type:      events.MessageType(eventType),
		Subtype:   subtype,
		Action:    action,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// BroadcastRefresh hints the dashboard to refetch after the canonical
// table changed.
func (h *Hub) BroadcastRefresh(source string, components []string) {
	h.BroadcastUpdate(string(events.TypeRefresh), "all", "refresh", map[string]interface{}{
		"source":     source,
		"components": components,
	})
}

// BroadcastError pushes a structured error event to every client.
func (h *Hub) BroadcastError(code, message string, recoverable bool) {
	h.broadcastJSON(events.Message{
		Type:      events.TypeError,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"code":        code,
			"message":     message,
			"recoverable": recoverable,
		},
	})
}

func (h *Hub) broadcastJSON(msg events.Message) {
	jsonData, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("error marshaling message",
			slog.String("error", err.Error()),
			slog.String("message_type", string(msg.Type)))
		return
	}

	select {
	case h.broadcast <- jsonData:
	case <-h.quit:
	}
}

// ClientCount reports how many clients are connected right now.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register hands a new connection to the Run loop.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Stop ends the Run loop and closes every client connection.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return
	}
	h.running = false
	close(h.quit)

	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// Metrics returns a snapshot of hub counters for the stats endpoint.
func (h *Hub) Metrics() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return map[string]interface{}{
		"active_clients":    len(h.clients),
		"total_connections": h.totalConnections,
		"messages_sent":     h.messagesSent,
	}
}
