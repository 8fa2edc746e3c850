package client

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulseboard/realtime-backend/internal/core/domain"
)

// offlineManager returns a manager that is never connected; frames are fed
// through handleFrame directly.
func offlineManager() *Manager {
	return NewManager(Options{
		URL:         "ws://unused",
		Credentials: func(context.Context) (string, error) { return "", nil },
		Logger:      testLogger(),
	})
}

func pushEvent(t *testing.T, m *Manager, name domain.EventName, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	m.handleFrame(domain.ServerFrame{Type: string(name), Payload: raw})
}

func TestRefetcher(t *testing.T) {
	t.Run("burst across event names becomes one refetch", func(t *testing.T) {
		m := offlineManager()
		var refetches atomic.Int64
		r := NewRefetcher(m, 20*time.Millisecond, func() { refetches.Add(1) }, nil,
			domain.EventTaskCreated, domain.EventTaskUpdated, domain.EventTaskDeleted)
		defer r.Stop()

		projectID := uuid.New()
		for i := 0; i < 5; i++ {
			pushEvent(t, m, domain.EventTaskCreated, domain.TaskPayload{
				ProjectID: &projectID, TaskID: uuid.New(), ActorUserID: uuid.New(),
			})
			pushEvent(t, m, domain.EventTaskUpdated, domain.TaskPayload{
				ProjectID: &projectID, TaskID: uuid.New(), ActorUserID: uuid.New(),
			})
		}

		require.Eventually(t, func() bool {
			return refetches.Load() == 1
		}, time.Second, 5*time.Millisecond)

		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, int64(1), refetches.Load())
	})

	t.Run("reconnect gap triggers a refetch", func(t *testing.T) {
		m := offlineManager()
		var refetches atomic.Int64
		r := NewRefetcher(m, 5*time.Millisecond, func() { refetches.Add(1) }, nil,
			domain.EventProjectUpdated)
		defer r.Stop()

		m.afterReconnect(context.Background())

		require.Eventually(t, func() bool {
			return refetches.Load() == 1
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("project view ignores personal-scope events", func(t *testing.T) {
		m := offlineManager()
		projectID := uuid.New()
		var refetches atomic.Int64
		r := NewRefetcher(m, 5*time.Millisecond, func() { refetches.Add(1) },
			InProject(projectID), domain.EventNoteCreated, domain.EventNoteUpdated)
		defer r.Stop()

		// A personal note (projectId null) must not invalidate a project view.
		pushEvent(t, m, domain.EventNoteCreated, domain.NotePayload{
			NoteID: uuid.New(), ActorUserID: uuid.New(),
		})
		// Neither must a note in a different project.
		otherID := uuid.New()
		pushEvent(t, m, domain.EventNoteUpdated, domain.NotePayload{
			ProjectID: &otherID, NoteID: uuid.New(), ActorUserID: uuid.New(),
		})

		time.Sleep(30 * time.Millisecond)
		require.Equal(t, int64(0), refetches.Load())

		pushEvent(t, m, domain.EventNoteCreated, domain.NotePayload{
			ProjectID: &projectID, NoteID: uuid.New(), ActorUserID: uuid.New(),
		})

		require.Eventually(t, func() bool {
			return refetches.Load() == 1
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("personal view ignores project-scope events", func(t *testing.T) {
		m := offlineManager()
		var refetches atomic.Int64
		r := NewRefetcher(m, 5*time.Millisecond, func() { refetches.Add(1) },
			PersonalOnly, domain.EventTaskCreated)
		defer r.Stop()

		projectID := uuid.New()
		pushEvent(t, m, domain.EventTaskCreated, domain.TaskPayload{
			ProjectID: &projectID, TaskID: uuid.New(), ActorUserID: uuid.New(),
		})

		time.Sleep(30 * time.Millisecond)
		require.Equal(t, int64(0), refetches.Load())

		pushEvent(t, m, domain.EventTaskCreated, domain.TaskPayload{
			TaskID: uuid.New(), ActorUserID: uuid.New(),
		})

		require.Eventually(t, func() bool {
			return refetches.Load() == 1
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("reconnect triggers even a filtered view", func(t *testing.T) {
		m := offlineManager()
		var refetches atomic.Int64
		r := NewRefetcher(m, 5*time.Millisecond, func() { refetches.Add(1) },
			InProject(uuid.New()), domain.EventTaskUpdated)
		defer r.Stop()

		m.afterReconnect(context.Background())

		require.Eventually(t, func() bool {
			return refetches.Load() == 1
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("stopped refetcher ignores events", func(t *testing.T) {
		m := offlineManager()
		var refetches atomic.Int64
		r := NewRefetcher(m, 5*time.Millisecond, func() { refetches.Add(1) }, nil,
			domain.EventTaskCreated)
		r.Stop()

		pushEvent(t, m, domain.EventTaskCreated, domain.TaskPayload{
			TaskID: uuid.New(), ActorUserID: uuid.New(),
		})

		time.Sleep(30 * time.Millisecond)
		assert.Equal(t, int64(0), refetches.Load())
	})
}

func TestCounter(t *testing.T) {
	t.Run("applies deltas per event", func(t *testing.T) {
		m := offlineManager()
		var last atomic.Int64
		c := NewCounter(m, domain.EventNotificationNew,
			func(p domain.Payload) int64 {
				n := p.(*domain.NotificationPayload)
				if n.Read {
					return 0
				}
				return 1
			},
			nil,
			func(v int64) { last.Store(v) },
		)
		defer c.Stop()

		pushEvent(t, m, domain.EventNotificationNew, domain.NotificationPayload{ID: uuid.New()})
		pushEvent(t, m, domain.EventNotificationNew, domain.NotificationPayload{ID: uuid.New()})
		pushEvent(t, m, domain.EventNotificationNew, domain.NotificationPayload{ID: uuid.New(), Read: true})

		assert.Equal(t, int64(2), c.Value())
		assert.Equal(t, int64(2), last.Load())
	})

	t.Run("resync replaces the value after a reconnect", func(t *testing.T) {
		m := offlineManager()
		c := NewCounter(m, domain.EventNotificationNew,
			func(domain.Payload) int64 { return 1 },
			func(set func(int64)) { set(7) },
			nil,
		)
		defer c.Stop()

		pushEvent(t, m, domain.EventNotificationNew, domain.NotificationPayload{ID: uuid.New()})
		require.Equal(t, int64(1), c.Value())

		m.afterReconnect(context.Background())
		assert.Equal(t, int64(7), c.Value())
	})
}

// A client that joins a project, loses its connection, and misses events
// while down must end up with current server state again purely through the
// reconnect-triggered refetch.
func TestReconnectRecoversMissedState(t *testing.T) {
	s := newWSServer(t)
	m := newTestManager(t, s)
	require.NoError(t, m.Connect(context.Background()))

	projectID := uuid.New()
	require.NoError(t, m.JoinProject(context.Background(), projectID))

	// The server-side task list is authoritative; events are only signals
	// that it changed.
	var mu sync.Mutex
	var tasks []uuid.UUID
	addTask := func() uuid.UUID {
		id := uuid.New()
		mu.Lock()
		tasks = append(tasks, id)
		mu.Unlock()
		return id
	}
	snapshot := func() []uuid.UUID {
		mu.Lock()
		defer mu.Unlock()
		return append([]uuid.UUID(nil), tasks...)
	}

	var viewMu sync.Mutex
	var view []uuid.UUID
	r := NewRefetcher(m, 5*time.Millisecond, func() {
		current := snapshot()
		viewMu.Lock()
		view = current
		viewMu.Unlock()
	}, InProject(projectID), domain.EventTaskCreated, domain.EventTaskUpdated)
	defer r.Stop()
	viewLen := func() int {
		viewMu.Lock()
		defer viewMu.Unlock()
		return len(view)
	}

	// Online: an announced change reaches the view via refetch.
	taskID := addTask()
	raw, err := json.Marshal(domain.TaskPayload{
		ProjectID: &projectID, TaskID: taskID, ActorUserID: uuid.New(),
	})
	require.NoError(t, err)
	s.push(t, domain.ServerFrame{Type: string(domain.EventTaskCreated), Payload: raw})

	require.Eventually(t, func() bool { return viewLen() == 1 },
		2*time.Second, 5*time.Millisecond)

	// Gap: the connection drops and three changes happen with nobody
	// listening.
	reconnected := make(chan struct{}, 1)
	m.OnReconnect(func() { reconnected <- struct{}{} })
	s.dropConn(t)
	for i := 0; i < 3; i++ {
		addTask()
	}

	select {
	case <-reconnected:
	case <-time.After(5 * time.Second):
		t.Fatal("reconnect never happened")
	}

	// The reconnect refetch alone must restore authoritative state.
	require.Eventually(t, func() bool { return viewLen() == 4 },
		2*time.Second, 5*time.Millisecond)
	viewMu.Lock()
	assert.Equal(t, snapshot(), view)
	viewMu.Unlock()
	assert.True(t, m.Connected())
}
