package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/pulseboard/realtime-backend/internal/core/domain"
	apperrors "github.com/pulseboard/realtime-backend/internal/core/errors"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	defaultPongWait = 60 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 1024

	// Outbound frame buffer per connection.
	defaultSendBuffer = 256
)

// ConnConfig tunes per-connection buffering and keep-alive timing. Zero
// values fall back to the package defaults.
type ConnConfig struct {
	SendBuffer   int
	PingInterval time.Duration
	PongWait     time.Duration
}

// Conn is a single authenticated websocket connection. Identity is attached
// at handshake and immutable for the connection's lifetime; room membership
// lives in the hub's registry, not here.
type Conn struct {
	hub *Hub

	// The websocket connection. Nil in tests that exercise the hub
	// directly through the send channel.
	ws *websocket.Conn

	// Buffered channel of outbound frames.
	send chan domain.ServerFrame

	id       uuid.UUID
	identity domain.Identity

	// closeOnce ensures the send channel is only closed once
	closeOnce sync.Once

	pingPeriod time.Duration
	pongWait   time.Duration

	logger *slog.Logger
}

// NewConn creates a connection owned by the hub.
func NewConn(hub *Hub, ws *websocket.Conn, identity domain.Identity, cfg ConnConfig, logger *slog.Logger) *Conn {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = defaultSendBuffer
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = defaultPongWait
	}
	if cfg.PingInterval <= 0 || cfg.PingInterval >= cfg.PongWait {
		cfg.PingInterval = (cfg.PongWait * 9) / 10
	}
	id := uuid.New()
	return &Conn{
		hub:        hub,
		ws:         ws,
		send:       make(chan domain.ServerFrame, cfg.SendBuffer),
		id:         id,
		identity:   identity,
		pingPeriod: cfg.PingInterval,
		pongWait:   cfg.PongWait,
		logger: logger.With(
			"conn_id", id.String(),
			"user_id", identity.UserID.String(),
		),
	}
}

// ID returns the unique connection id.
func (c *Conn) ID() uuid.UUID { return c.id }

// Identity returns the authenticated identity attached at handshake.
func (c *Conn) Identity() domain.Identity { return c.identity }

// CloseSend safely closes the send channel exactly once
func (c *Conn) CloseSend() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// trySend queues a frame without blocking. Returns false when the buffer is
// full; the hub treats that as a dead client.
func (c *Conn) trySend(frame domain.ServerFrame) bool {
	defer func() {
		// Losing a race with CloseSend is fine, the connection is gone.
		_ = recover()
	}()

	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// ReadPump pumps messages from the websocket connection to the hub.
// This method runs in its own goroutine.
func (c *Conn) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	if err := c.ws.SetReadDeadline(time.Now().Add(c.pongWait)); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}

	c.ws.SetPongHandler(func(string) error {
		if err := c.ws.SetReadDeadline(time.Now().Add(c.pongWait)); err != nil {
			c.logger.Error("failed to set read deadline in pong handler", "error", err)
		}
		return nil
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			break
		}

		c.handleFrame(message)
	}
}

// WritePump pumps frames from the hub to the websocket connection.
// This method runs in its own goroutine.
func (c *Conn) WritePump() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline", "error", err)
				return
			}

			if !ok {
				// The hub closed the channel. Send close message.
				if err := c.ws.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.logger.Debug("failed to send close message", "error", err)
				}
				return
			}

			if err := c.ws.WriteJSON(frame); err != nil {
				c.logger.Error("failed to write frame", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline for ping", "error", err)
				return
			}

			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

// handleFrame processes a frame received from the client.
func (c *Conn) handleFrame(message []byte) {
	var frame domain.ClientFrame
	if err := json.Unmarshal(message, &frame); err != nil {
		c.logger.Warn("failed to unmarshal client frame", "error", err)
		return
	}

	switch frame.Type {
	case domain.FrameJoinProject:
		c.handleJoinProject(frame)

	case domain.FramePing:
		// Client-side keep-alive on top of protocol pings.
		c.trySend(domain.ServerFrame{Type: domain.FramePong})

	default:
		c.logger.Debug("received unknown frame type", "type", frame.Type)
	}
}

// handleJoinProject answers a project:join request with an ack frame. Join
// failures are reported to the caller and never tear down the connection;
// the tenant room and any previously joined project rooms stay usable.
func (c *Conn) handleJoinProject(frame domain.ClientFrame) {
	var p domain.JoinProjectPayload
	if err := json.Unmarshal(frame.Payload, &p); err != nil {
		c.ack(frame.ID, false, domain.JoinErrBadRequest)
		return
	}

	projectID, err := uuid.Parse(p.ProjectID)
	if err != nil || projectID == uuid.Nil {
		c.ack(frame.ID, false, domain.JoinErrBadRequest)
		return
	}

	if err := c.hub.JoinProject(context.Background(), c, projectID); err != nil {
		c.ack(frame.ID, false, joinErrorCode(err))
		return
	}

	c.ack(frame.ID, true, "")
}

func joinErrorCode(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrNotAMember):
		return domain.JoinErrNotAMember
	case errors.Is(err, apperrors.ErrProjectNotFound):
		return domain.JoinErrProjectNotFound
	default:
		return "INTERNAL_ERROR"
	}
}

func (c *Conn) ack(id uint64, success bool, errCode string) {
	payload, err := json.Marshal(domain.AckPayload{Success: success, Error: errCode})
	if err != nil {
		c.logger.Error("failed to marshal ack", "error", err)
		return
	}
	c.trySend(domain.ServerFrame{Type: domain.FrameAck, ID: id, Payload: payload})
}
