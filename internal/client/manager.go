package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/pulseboard/realtime-backend/internal/core/domain"
	apperrors "github.com/pulseboard/realtime-backend/internal/core/errors"
)

// CredentialSource returns a fresh access token for a connection attempt.
// It is called again on every reconnect so a token that expired during an
// outage never poisons the retry loop.
type CredentialSource func(ctx context.Context) (string, error)

// Options configures a Manager.
type Options struct {
	// URL is the websocket endpoint, e.g. wss://host/api/v1/ws.
	URL string
	// Credentials supplies the bearer token per attempt.
	Credentials CredentialSource
	// Backoff bounds the reconnect schedule. Zero value means DefaultBackoff.
	Backoff BackoffPolicy
	// Clock defaults to the wall clock.
	Clock Clock
	// JoinTimeout bounds how long JoinProject waits for its ack.
	JoinTimeout time.Duration
	// Dialer defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer
	Logger *slog.Logger
}

// Manager owns at most one live websocket connection per session. It decodes
// incoming event frames, fans them out to subscribers, tracks joined project
// rooms for automatic re-join, and reconnects with bounded backoff when the
// connection drops.
type Manager struct {
	opts       Options
	dispatcher *dispatcher
	logger     *slog.Logger

	mu        sync.Mutex
	ws        *websocket.Conn
	connected bool
	closed    bool
	joined    map[uuid.UUID]bool
	pending   map[uint64]chan domain.AckPayload
	hooks     map[uint64]func()
	nextID    uint64

	// writeMu serializes frame writes; gorilla allows one writer at a time.
	writeMu sync.Mutex

	cancel context.CancelFunc
}

// NewManager creates a manager. Connect must be called before any joins.
func NewManager(opts Options) *Manager {
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	if opts.Backoff == (BackoffPolicy{}) {
		opts.Backoff = DefaultBackoff
	}
	if opts.JoinTimeout == 0 {
		opts.JoinTimeout = 10 * time.Second
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Manager{
		opts:       opts,
		dispatcher: newDispatcher(opts.Logger),
		logger:     opts.Logger,
		joined:     make(map[uuid.UUID]bool),
		pending:    make(map[uint64]chan domain.AckPayload),
		hooks:      make(map[uint64]func()),
	}
}

// Connect establishes the connection, retrying per the backoff policy. The
// credential is fetched fresh for every attempt.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return fmt.Errorf("manager is closed")
	}
	if m.connected {
		m.mu.Unlock()
		return nil
	}
	sessionCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.mu.Unlock()

	if err := m.connectWithRetry(ctx, sessionCtx); err != nil {
		return err
	}
	return nil
}

func (m *Manager) connectWithRetry(ctx, sessionCtx context.Context) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			delay := m.opts.Backoff.Delay(attempt)
			if delay < 0 {
				return fmt.Errorf("giving up after %d attempts: %w", attempt-1, lastErr)
			}
			select {
			case <-m.opts.Clock.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			case <-sessionCtx.Done():
				return fmt.Errorf("manager is closed")
			}
		}

		err := m.dialOnce(ctx, sessionCtx)
		if err == nil {
			return nil
		}
		lastErr = err
		m.logger.Warn("connection attempt failed",
			"attempt", attempt+1,
			"error", err,
		)
	}
}

func (m *Manager) dialOnce(ctx, sessionCtx context.Context) error {
	token, err := m.opts.Credentials(ctx)
	if err != nil {
		return fmt.Errorf("fetching credential: %w", err)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	ws, resp, err := m.opts.Dialer.DialContext(ctx, m.opts.URL, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial failed with status %d: %w", resp.StatusCode, err)
		}
		return err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		ws.Close()
		return fmt.Errorf("manager is closed")
	}
	m.ws = ws
	m.connected = true
	m.mu.Unlock()

	go m.readLoop(sessionCtx, ws)
	return nil
}

// readLoop consumes frames until the connection fails, then hands off to the
// reconnect path.
func (m *Manager) readLoop(sessionCtx context.Context, ws *websocket.Conn) {
	for {
		var frame domain.ServerFrame
		if err := ws.ReadJSON(&frame); err != nil {
			m.handleDisconnect(sessionCtx, ws, err)
			return
		}
		m.handleFrame(frame)
	}
}

func (m *Manager) handleFrame(frame domain.ServerFrame) {
	switch frame.Type {
	case domain.FrameAck:
		var ack domain.AckPayload
		if err := json.Unmarshal(frame.Payload, &ack); err != nil {
			m.logger.Warn("malformed ack payload", "error", err)
			return
		}
		m.deliverAck(frame.ID, ack)
	case domain.FramePong:
		// Nothing to do.
	default:
		m.dispatcher.dispatch(domain.EventName(frame.Type), frame.Payload)
	}
}

func (m *Manager) deliverAck(id uint64, ack domain.AckPayload) {
	m.mu.Lock()
	ch, ok := m.pending[id]
	if ok {
		delete(m.pending, id)
	}
	m.mu.Unlock()
	if ok {
		ch <- ack
	}
}

func (m *Manager) handleDisconnect(sessionCtx context.Context, ws *websocket.Conn, cause error) {
	ws.Close()

	m.mu.Lock()
	if m.ws != ws {
		// A newer connection already took over.
		m.mu.Unlock()
		return
	}
	m.ws = nil
	m.connected = false
	closed := m.closed
	// Fail pending joins; their connection is gone.
	for id, ch := range m.pending {
		delete(m.pending, id)
		ch <- domain.AckPayload{Success: false, Error: domain.JoinErrNotConnected}
	}
	m.mu.Unlock()

	if closed || sessionCtx.Err() != nil {
		return
	}

	m.logger.Info("connection lost, reconnecting", "cause", cause)
	if err := m.connectWithRetry(sessionCtx, sessionCtx); err != nil {
		m.logger.Error("reconnect abandoned", "error", err)
		return
	}
	m.afterReconnect(sessionCtx)
}

// afterReconnect re-joins every tracked project room and fires the reconnect
// hooks so mounted surfaces refetch whatever they missed during the gap.
func (m *Manager) afterReconnect(sessionCtx context.Context) {
	m.mu.Lock()
	projects := make([]uuid.UUID, 0, len(m.joined))
	for id := range m.joined {
		projects = append(projects, id)
	}
	hooks := make([]func(), 0, len(m.hooks))
	for _, h := range m.hooks {
		hooks = append(hooks, h)
	}
	m.mu.Unlock()

	for _, projectID := range projects {
		ctx, cancel := context.WithTimeout(sessionCtx, m.opts.JoinTimeout)
		if err := m.JoinProject(ctx, projectID); err != nil {
			m.logger.Warn("failed to re-join project after reconnect",
				"project_id", projectID,
				"error", err,
			)
		}
		cancel()
	}

	for _, h := range hooks {
		h()
	}
}

// Subscribe registers a handler for an event name and returns an unsubscribe
// func. Unsubscribing twice is a no-op.
func (m *Manager) Subscribe(name domain.EventName, handler Handler) func() {
	return m.dispatcher.subscribe(name, handler)
}

// OnReconnect registers a hook fired after a successful reconnect. Returns a
// removal func.
func (m *Manager) OnReconnect(fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.hooks[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.hooks, id)
	}
}

// JoinProject asks the server for membership in the project's room and waits
// for the ack. Joined projects are re-joined automatically after reconnects.
func (m *Manager) JoinProject(ctx context.Context, projectID uuid.UUID) error {
	m.mu.Lock()
	if !m.connected || m.ws == nil {
		m.mu.Unlock()
		return apperrors.ErrNotConnected
	}
	ws := m.ws
	m.nextID++
	id := m.nextID
	ackCh := make(chan domain.AckPayload, 1)
	m.pending[id] = ackCh
	m.mu.Unlock()

	payload, _ := json.Marshal(domain.JoinProjectPayload{ProjectID: projectID.String()})
	frame := domain.ClientFrame{
		Type:    domain.FrameJoinProject,
		ID:      id,
		Payload: payload,
	}

	if err := m.writeFrame(ws, frame); err != nil {
		m.mu.Lock()
		delete(m.pending, id)
		m.mu.Unlock()
		return err
	}

	select {
	case ack := <-ackCh:
		if !ack.Success {
			return joinError(ack.Error)
		}
		m.mu.Lock()
		m.joined[projectID] = true
		m.mu.Unlock()
		return nil
	case <-m.opts.Clock.After(m.opts.JoinTimeout):
		m.mu.Lock()
		delete(m.pending, id)
		m.mu.Unlock()
		return fmt.Errorf("timed out waiting for join ack")
	case <-ctx.Done():
		m.mu.Lock()
		delete(m.pending, id)
		m.mu.Unlock()
		return ctx.Err()
	}
}

func (m *Manager) writeFrame(ws *websocket.Conn, frame domain.ClientFrame) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return ws.WriteJSON(frame)
}

// joinError maps an ack error code back to a sentinel.
func joinError(code string) error {
	switch code {
	case domain.JoinErrNotAMember:
		return apperrors.ErrNotAMember
	case domain.JoinErrProjectNotFound:
		return apperrors.ErrProjectNotFound
	case domain.JoinErrNotConnected:
		return apperrors.ErrNotConnected
	default:
		return fmt.Errorf("join refused: %s", code)
	}
}

// Connected reports whether a live connection exists right now.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Close tears the session down: the socket is closed, pending reconnects are
// abandoned, and every listener is removed. The manager cannot be reused.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.connected = false
	ws := m.ws
	m.ws = nil
	cancel := m.cancel
	m.hooks = make(map[uint64]func())
	for id, ch := range m.pending {
		delete(m.pending, id)
		ch <- domain.AckPayload{Success: false, Error: domain.JoinErrNotConnected}
	}
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.dispatcher.clear()
	if ws != nil {
		return ws.Close()
	}
	return nil
}
