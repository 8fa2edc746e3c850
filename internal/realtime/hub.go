package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pulseboard/realtime-backend/internal/core/domain"
	apperrors "github.com/pulseboard/realtime-backend/internal/core/errors"
	"github.com/pulseboard/realtime-backend/internal/core/ports"
	"github.com/pulseboard/realtime-backend/internal/observability"
)

const joinLookupTimeout = 5 * time.Second

// Hub is the fan-out core. Given a domain event it resolves the target rooms
// from the event's scope and queues a frame on every connection in them.
// Delivery is at-most-once and best-effort: a connection with a full send
// buffer is dropped, a disconnected client simply misses the event, and
// nothing is queued for later.
type Hub struct {
	registry   *Registry
	membership ports.MembershipStore

	// Broadcast channel for events
	broadcast chan domain.Event

	// Register requests from connections
	register chan *Conn

	// Unregister requests from connections
	unregister chan *Conn

	metrics *observability.Metrics
	logger  *slog.Logger
}

// Ensure Hub implements the Broadcaster port.
var _ ports.Broadcaster = (*Hub)(nil)

// NewHub creates a hub. metrics may be nil (tests).
func NewHub(membership ports.MembershipStore, metrics *observability.Metrics, logger *slog.Logger) *Hub {
	return &Hub{
		registry:   NewRegistry(),
		membership: membership,
		broadcast:  make(chan domain.Event, 256),
		register:   make(chan *Conn),
		unregister: make(chan *Conn),
		metrics:    metrics,
		logger:     logger.With("component", "realtime_hub"),
	}
}

// Registry exposes the room registry for handlers and tests.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// ConnCount reports the number of registered connections.
func (h *Hub) ConnCount() int { return h.registry.ConnCount() }

// RoomCount reports the number of non-empty rooms.
func (h *Hub) RoomCount() int { return h.registry.RoomCount() }

// Emit queues an event for fan-out. Fire-and-forget: there is no return
// value and nothing the caller could do about an unreachable client anyway.
func (h *Hub) Emit(event domain.Event) {
	if h.metrics != nil {
		h.metrics.EventsEmitted.WithLabelValues(string(event.Name)).Inc()
	}
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("broadcast channel full, dropping event",
			"event", event.Name,
			"tenant_id", event.Scope.TenantID,
		)
	}
}

// Run drives the hub's event loop until ctx is cancelled. Run this as a
// goroutine; registry mutation and fan-out for register/unregister/broadcast
// all happen here.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case c := <-h.register:
			h.registerConn(c)

		case c := <-h.unregister:
			h.unregisterConn(c)

		case event := <-h.broadcast:
			h.broadcastEvent(event)

		case <-ctx.Done():
			return
		}
	}
}

// Register hands a freshly upgraded connection to the hub. The connection
// auto-joins its tenant room; identity was validated at handshake so this
// cannot fail.
func (h *Hub) Register(c *Conn) {
	h.register <- c
}

// Unregister removes a connection from all rooms and closes its send channel.
func (h *Hub) Unregister(c *Conn) {
	h.unregister <- c
}

func (h *Hub) registerConn(c *Conn) {
	h.registry.Add(c, TenantRoomKey(c.identity.TenantID))

	if h.metrics != nil {
		h.metrics.ConnectionsActive.Inc()
		h.metrics.ConnectionsTotal.Inc()
	}

	h.logger.Info("connection registered",
		"conn_id", c.id,
		"tenant_id", c.identity.TenantID,
		"user_id", c.identity.UserID,
	)
}

func (h *Hub) unregisterConn(c *Conn) {
	rooms := h.registry.RemoveConn(c)
	c.CloseSend()

	if h.metrics != nil && len(rooms) > 0 {
		h.metrics.ConnectionsActive.Dec()
	}

	h.logger.Info("connection unregistered",
		"conn_id", c.id,
		"user_id", c.identity.UserID,
		"rooms", len(rooms),
	)
}

// JoinProject authorizes and performs a project room join for a connection.
// It runs on the connection's read goroutine, not the hub loop, because the
// membership lookup may block on the database. Failures are explicit; the
// room set is only touched after authorization passes.
func (h *Hub) JoinProject(ctx context.Context, c *Conn, projectID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, joinLookupTimeout)
	defer cancel()

	tenantID := c.identity.TenantID

	exists, err := h.membership.ProjectExists(ctx, tenantID, projectID)
	if err != nil {
		h.countJoin("error")
		return err
	}
	if !exists {
		h.countJoin("project_not_found")
		return apperrors.ErrProjectNotFound
	}

	member, err := h.membership.IsMember(ctx, tenantID, c.identity.UserID, projectID)
	if err != nil {
		h.countJoin("error")
		return err
	}
	if !member {
		h.countJoin("not_a_member")
		return apperrors.ErrNotAMember
	}

	h.registry.Add(c, ProjectRoomKey(tenantID, projectID))
	h.countJoin("ok")

	h.logger.Debug("project room joined",
		"conn_id", c.id,
		"user_id", c.identity.UserID,
		"project_id", projectID,
	)
	return nil
}

func (h *Hub) countJoin(outcome string) {
	if h.metrics != nil {
		h.metrics.JoinRequests.WithLabelValues(outcome).Inc()
	}
}

// roomsFor resolves an event's scope to room keys. Project-scoped events go
// to the project room only, unless the event name is in the reviewed
// TenantBroadcastEvents list, in which case the tenant room is added because
// that entity is also rendered outside any project room.
func roomsFor(event domain.Event) []string {
	scope := event.Scope
	if scope.ProjectID == nil {
		return []string{TenantRoomKey(scope.TenantID)}
	}

	rooms := []string{ProjectRoomKey(scope.TenantID, *scope.ProjectID)}
	if domain.TenantBroadcastEvents[event.Name] {
		rooms = append(rooms, TenantRoomKey(scope.TenantID))
	}
	return rooms
}

func (h *Hub) broadcastEvent(event domain.Event) {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		h.logger.Error("failed to marshal event payload",
			"event", event.Name,
			"error", err,
		)
		return
	}
	frame := domain.ServerFrame{Type: string(event.Name), Payload: payload}

	// A connection joined to both target rooms (project:updated) still
	// receives the frame once.
	seen := make(map[*Conn]struct{})
	delivered := 0
	for _, room := range roomsFor(event) {
		for _, c := range h.registry.Members(room) {
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}

			if c.trySend(frame) {
				delivered++
				continue
			}

			// Send buffer full: the client is too far behind to be
			// useful, drop it and let it reconnect.
			if h.metrics != nil {
				h.metrics.SendDrops.Inc()
			}
			h.logger.Warn("send buffer full, dropping connection",
				"conn_id", c.id,
				"user_id", c.identity.UserID,
			)
			h.unregisterConn(c)
		}
	}

	if h.metrics != nil {
		h.metrics.FanoutSize.Observe(float64(delivered))
	}

	h.logger.Debug("event broadcast",
		"event", event.Name,
		"tenant_id", event.Scope.TenantID,
		"delivered", delivered,
	)
}
