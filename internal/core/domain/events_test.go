package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulseboard/realtime-backend/internal/core/domain"
)

var allEventNames = []domain.EventName{
	domain.EventTaskCreated, domain.EventTaskUpdated, domain.EventTaskDeleted,
	domain.EventProjectCreated, domain.EventProjectUpdated,
	domain.EventCommentCreated, domain.EventCommentUpdated, domain.EventCommentDeleted,
	domain.EventTimeEntryCreated, domain.EventTimeEntryUpdated, domain.EventTimeEntryDeleted,
	domain.EventFileCreated, domain.EventFileUpdated, domain.EventFileDeleted,
	domain.EventNoteCreated, domain.EventNoteUpdated, domain.EventNoteDeleted,
	domain.EventNotificationNew, domain.EventEmailNew,
}

func TestNewPayload_CoversEveryCatalogueEntry(t *testing.T) {
	for _, name := range allEventNames {
		payload, ok := domain.NewPayload(name)
		assert.True(t, ok, "no payload registered for %s", name)
		assert.NotNil(t, payload)
	}

	_, ok := domain.NewPayload("task:exploded")
	assert.False(t, ok)
}

func TestNewEvent_RejectsMismatchedPayload(t *testing.T) {
	scope := domain.TenantScope(uuid.New())

	_, err := domain.NewEvent(domain.EventTaskCreated, scope, &domain.NotePayload{})
	assert.Error(t, err)

	_, err = domain.NewEvent("nonsense", scope, &domain.TaskPayload{})
	assert.Error(t, err)

	_, err = domain.NewEvent(domain.EventTaskCreated, scope, &domain.TaskPayload{})
	assert.NoError(t, err)
}

func TestTenantBroadcastEvents_IsTheReviewedList(t *testing.T) {
	// project:updated is the only project-scoped event also rendered
	// outside a project room (the project list view). Growing this list is
	// a deliberate decision, not a side effect.
	assert.Equal(t, map[domain.EventName]bool{domain.EventProjectUpdated: true}, domain.TenantBroadcastEvents)
}

func TestTaskPayload_NullProjectIDIsExplicit(t *testing.T) {
	personal := &domain.TaskPayload{TaskID: uuid.New(), ActorUserID: uuid.New()}
	data, err := json.Marshal(personal)
	require.NoError(t, err)
	// Listeners branch on projectId == null; the key must be present.
	assert.Contains(t, string(data), `"projectId":null`)

	projectID := uuid.New()
	scoped := &domain.TaskPayload{ProjectID: &projectID, TaskID: uuid.New(), ActorUserID: uuid.New()}
	data, err = json.Marshal(scoped)
	require.NoError(t, err)
	assert.Contains(t, string(data), projectID.String())
}

func TestNotificationPayloadRoundTrip(t *testing.T) {
	notification := &domain.Notification{
		ID:       uuid.New(),
		TenantID: uuid.New(),
		UserID:   uuid.New(),
		Title:    "Task assigned",
		Body:     "You were assigned to a task",
	}
	payload := notification.Payload()

	data, err := json.Marshal(payload)
	require.NoError(t, err)

	var decoded domain.NotificationPayload
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, notification.ID, decoded.ID)
	assert.Equal(t, "Task assigned", decoded.Title)
	assert.False(t, decoded.Read)
	assert.Nil(t, decoded.ProjectID)
}

func TestNotificationValidate(t *testing.T) {
	n := &domain.Notification{}
	assert.Error(t, n.Validate())

	n = &domain.Notification{
		TenantID: uuid.New(),
		UserID:   uuid.New(),
		Title:    "hello",
	}
	assert.NoError(t, n.Validate())
}

func TestProjectOf(t *testing.T) {
	projectID := uuid.New()

	id, ok := domain.ProjectOf(&domain.TaskPayload{ProjectID: &projectID})
	require.True(t, ok)
	require.NotNil(t, id)
	assert.Equal(t, projectID, *id)

	// Personal scope: the project dimension exists but is empty.
	id, ok = domain.ProjectOf(&domain.NotePayload{})
	assert.True(t, ok)
	assert.Nil(t, id)

	id, ok = domain.ProjectOf(&domain.ProjectPayload{ProjectID: projectID})
	require.True(t, ok)
	assert.Equal(t, projectID, *id)

	// email:new has no project dimension at all.
	_, ok = domain.ProjectOf(&domain.EmailPayload{})
	assert.False(t, ok)
}
