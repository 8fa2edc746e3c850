package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventName identifies one entry in the fixed realtime event catalogue.
type EventName string

const (
	EventTaskCreated EventName = "task:created"
	EventTaskUpdated EventName = "task:updated"
	EventTaskDeleted EventName = "task:deleted"

	EventProjectCreated EventName = "project:created"
	EventProjectUpdated EventName = "project:updated"

	EventCommentCreated EventName = "comment:created"
	EventCommentUpdated EventName = "comment:updated"
	EventCommentDeleted EventName = "comment:deleted"

	EventTimeEntryCreated EventName = "timeentry:created"
	EventTimeEntryUpdated EventName = "timeentry:updated"
	EventTimeEntryDeleted EventName = "timeentry:deleted"

	EventFileCreated EventName = "file:created"
	EventFileUpdated EventName = "file:updated"
	EventFileDeleted EventName = "file:deleted"

	EventNoteCreated EventName = "note:created"
	EventNoteUpdated EventName = "note:updated"
	EventNoteDeleted EventName = "note:deleted"

	EventNotificationNew EventName = "notification:new"
	EventEmailNew        EventName = "email:new"
)

// TenantBroadcastEvents is the reviewed list of project-scoped events that
// are additionally delivered to the tenant room. The project list view lives
// outside any project room, so it needs project:updated; every other
// project-scoped event is only interesting inside the project.
var TenantBroadcastEvents = map[EventName]bool{
	EventProjectUpdated: true,
}

// Scope determines which rooms an event fans out to. A nil ProjectID means
// tenant-wide.
type Scope struct {
	TenantID  uuid.UUID
	ProjectID *uuid.UUID
}

// TenantScope builds a tenant-wide scope.
func TenantScope(tenantID uuid.UUID) Scope {
	return Scope{TenantID: tenantID}
}

// ProjectScope builds a scope targeting a single project's room.
func ProjectScope(tenantID, projectID uuid.UUID) Scope {
	return Scope{TenantID: tenantID, ProjectID: &projectID}
}

// Payload is implemented by every event payload type. The interface is sealed
// so the catalogue of shapes stays closed: adding an event means adding a
// payload type here and a case in NewPayload.
type Payload interface {
	isPayload()
}

// Event is an immutable (name, payload, scope) triple handed to the hub.
// Payloads carry identifying fields only, never full entity data; receivers
// treat them as invalidation signals and refetch authoritative state.
type Event struct {
	Name    EventName
	Payload Payload
	Scope   Scope
}

// NewEvent validates that the payload shape matches the event name before
// constructing the event. Emitting a mismatched pair is a programming error
// surfaced at the emit site rather than at some listener.
func NewEvent(name EventName, scope Scope, payload Payload) (Event, error) {
	want, ok := NewPayload(name)
	if !ok {
		return Event{}, fmt.Errorf("unknown event name %q", name)
	}
	if fmt.Sprintf("%T", want) != fmt.Sprintf("%T", payload) {
		return Event{}, fmt.Errorf("event %q requires payload %T, got %T", name, want, payload)
	}
	return Event{Name: name, Payload: payload, Scope: scope}, nil
}

// MustEvent is NewEvent for emit sites where the pairing is statically
// obvious; panics on mismatch.
func MustEvent(name EventName, scope Scope, payload Payload) Event {
	event, err := NewEvent(name, scope, payload)
	if err != nil {
		panic(err)
	}
	return event
}

// NewPayload returns a zero payload value for an event name. Consumers use it
// to decode incoming frames into the right concrete type. The switch is the
// single exhaustive mapping from name to shape.
func NewPayload(name EventName) (Payload, bool) {
	switch name {
	case EventTaskCreated, EventTaskUpdated, EventTaskDeleted:
		return &TaskPayload{}, true
	case EventProjectCreated, EventProjectUpdated:
		return &ProjectPayload{}, true
	case EventCommentCreated, EventCommentUpdated, EventCommentDeleted:
		return &CommentPayload{}, true
	case EventTimeEntryCreated, EventTimeEntryUpdated, EventTimeEntryDeleted:
		return &TimeEntryPayload{}, true
	case EventFileCreated, EventFileUpdated, EventFileDeleted:
		return &FilePayload{}, true
	case EventNoteCreated, EventNoteUpdated, EventNoteDeleted:
		return &NotePayload{}, true
	case EventNotificationNew:
		return &NotificationPayload{}, true
	case EventEmailNew:
		return &EmailPayload{}, true
	default:
		return nil, false
	}
}

// ProjectOf extracts the project a payload refers to. The second result is
// false for payloads with no project dimension (email:new); a true result
// with a nil id means the personal scope.
func ProjectOf(p Payload) (*uuid.UUID, bool) {
	switch v := p.(type) {
	case *TaskPayload:
		return v.ProjectID, true
	case *ProjectPayload:
		id := v.ProjectID
		return &id, true
	case *CommentPayload:
		return v.ProjectID, true
	case *TimeEntryPayload:
		return v.ProjectID, true
	case *FilePayload:
		return v.ProjectID, true
	case *NotePayload:
		return v.ProjectID, true
	case *NotificationPayload:
		return v.ProjectID, true
	default:
		return nil, false
	}
}

// TaskPayload accompanies the task lifecycle events. ProjectID is nil for
// personal tasks; that is a meaningful value listeners branch on, not an
// omission.
type TaskPayload struct {
	ProjectID   *uuid.UUID `json:"projectId"`
	TaskID      uuid.UUID  `json:"taskId"`
	ActorUserID uuid.UUID  `json:"actorUserId"`
}

func (*TaskPayload) isPayload() {}

// ProjectPayload accompanies project:created and project:updated.
type ProjectPayload struct {
	ProjectID   uuid.UUID `json:"projectId"`
	ActorUserID uuid.UUID `json:"actorUserId"`
}

func (*ProjectPayload) isPayload() {}

// CommentPayload accompanies the comment lifecycle events.
type CommentPayload struct {
	ProjectID   *uuid.UUID `json:"projectId"`
	CommentID   uuid.UUID  `json:"commentId"`
	TaskID      uuid.UUID  `json:"taskId"`
	ActorUserID uuid.UUID  `json:"actorUserId"`
}

func (*CommentPayload) isPayload() {}

// TimeEntryPayload accompanies the time-entry lifecycle events.
type TimeEntryPayload struct {
	ProjectID   *uuid.UUID `json:"projectId"`
	TimeEntryID uuid.UUID  `json:"timeEntryId"`
	ActorUserID uuid.UUID  `json:"actorUserId"`
}

func (*TimeEntryPayload) isPayload() {}

// FilePayload accompanies the file lifecycle events.
type FilePayload struct {
	ProjectID   *uuid.UUID `json:"projectId"`
	FileID      uuid.UUID  `json:"fileId"`
	ActorUserID uuid.UUID  `json:"actorUserId"`
}

func (*FilePayload) isPayload() {}

// NotePayload accompanies the note lifecycle events. ProjectID nil means a
// personal note.
type NotePayload struct {
	ProjectID   *uuid.UUID `json:"projectId"`
	NoteID      uuid.UUID  `json:"noteId"`
	ActorUserID uuid.UUID  `json:"actorUserId"`
}

func (*NotePayload) isPayload() {}

// NotificationPayload is the one payload that carries displayable fields, so
// a notification dropdown can prepend it without a round trip.
type NotificationPayload struct {
	ID        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	Read      bool       `json:"read"`
	CreatedAt time.Time  `json:"createdAt"`
	ProjectID *uuid.UUID `json:"projectId"`
}

func (*NotificationPayload) isPayload() {}

// EmailPayload signals a new message in a mailbox. Listeners invalidate
// unread counts and conversation lists; the message itself is fetched over
// the API.
type EmailPayload struct {
	MailboxID uuid.UUID `json:"mailboxId"`
	MessageID uuid.UUID `json:"messageId"`
	Folder    string    `json:"folder"`
}

func (*EmailPayload) isPayload() {}
