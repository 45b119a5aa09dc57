package websocket

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// maxMessageSize caps inbound frames; dashboard clients only send
	// small heartbeat payloads.
	maxMessageSize = 512

	defaultWriteWait = 10 * time.Second
	defaultPongWait  = 60 * time.Second
)

// Timings groups the per-connection deadlines. Zero fields fall back
// to the defaults when the client is created.
type Timings struct {
	// WriteWait bounds a single frame write.
	WriteWait time.Duration
	// PongWait is how long a silent peer stays connected.
	PongWait time.Duration
	// PingPeriod is the keepalive interval. It must fit inside
	// PongWait and is derived from it when unset or out of range.
	PingPeriod time.Duration
}

func (t Timings) normalized() Timings {
	if t.WriteWait <= 0 {
		t.WriteWait = defaultWriteWait
	}
	if t.PongWait <= 0 {
		t.PongWait = defaultPongWait
	}
	if t.PingPeriod <= 0 || t.PingPeriod >= t.PongWait {
		t.PingPeriod = t.PongWait * 9 / 10
	}
	return t
}

// Connection abstracts the underlying websocket connection so the
// pumps can be tested without a network peer.
type Connection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(string) error)
	RemoteAddr() string
}

// Client is a middleman between one websocket connection and the hub
type Client struct {
	hub  *Hub
	conn Connection

	// Buffered channel of outbound messages
	send chan []byte

	id          string
	remoteAddr  string
	connectedAt time.Time
	timings     Timings
	logger      *slog.Logger
}

func newClient(hub *Hub, conn Connection, logger *slog.Logger, t Timings) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.New().String()
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, 256),
		id:          id,
		remoteAddr:  conn.RemoteAddr(),
		connectedAt: time.Now(),
		timings:     t.normalized(),
		logger: logger.With(
			slog.String("component", "websocket.client"),
			slog.String("client_id", id),
		),
	}
}

// NewClientWithConnection creates a client with default timings over
// any Connection. Tests use it to substitute a scripted connection.
func NewClientWithConnection(hub *Hub, conn Connection, logger *slog.Logger) *Client {
	return newClient(hub, conn, logger, Timings{})
}

// heartbeat is the only inbound payload the dashboard sends. Browsers
// cannot emit pong frames from script, so the bundle posts these
// instead.
type heartbeat struct {
	Type string `json:"type"`
}

// ReadPump pumps messages from the websocket connection to the hub.
// Inbound traffic is heartbeat-only; anything else is discarded.
func (c *Client) ReadPump() {
	defer func() {
		c.logger.Info("client disconnected",
			slog.Duration("connection_duration", time.Since(c.connectedAt)))
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.timings.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.timings.PongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("unexpected close error",
					slog.String("error", err.Error()))
			}
			break
		}

		var hb heartbeat
		if json.Unmarshal(message, &hb) == nil && hb.Type == "heartbeat" {
			// An application-level heartbeat counts as liveness the
			// same way a pong frame does.
			c.conn.SetReadDeadline(time.Now().Add(c.timings.PongWait))
			c.logger.Debug("heartbeat received")
			continue
		}
		c.logger.Debug("ignoring inbound frame", slog.Int("bytes", len(message)))
	}
}

// writeFrame sends one text frame under the write deadline.
func (c *Client) writeFrame(data []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(c.timings.WriteWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// WritePump pumps messages from the hub to the websocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.timings.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// The hub closed the channel
				c.conn.SetWriteDeadline(time.Now().Add(c.timings.WriteWait))
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.writeFrame(message); err != nil {
				c.logger.Error("error writing message",
					slog.String("error", err.Error()))
				return
			}

			// Drain anything queued behind the first message so a
			// burst goes out in one scheduling pass.
			for n := len(c.send); n > 0; n-- {
				msg, ok := <-c.send
				if !ok {
					c.conn.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := c.writeFrame(msg); err != nil {
					c.logger.Error("error writing queued message",
						slog.String("error", err.Error()))
					return
				}
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.timings.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping",
					slog.String("error", err.Error()))
				return
			}
		}
	}
}

// ServeWS attaches an upgraded connection to the hub with default
// timings and starts its pumps.
func ServeWS(hub *Hub, conn *websocket.Conn, logger *slog.Logger) {
	ServeWSWithTimings(hub, conn, logger, Timings{})
}

// ServeWSWithTimings is ServeWS with explicit deadlines, wired from
// the websocket section of the server configuration.
func ServeWSWithTimings(hub *Hub, conn *websocket.Conn, logger *slog.Logger, t Timings) {
	client := newClient(hub, newGorillaConn(conn), logger, t)
	hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
