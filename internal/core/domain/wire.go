package domain

import "encoding/json"

// Frame types that are not event names. Everything else on the wire uses an
// EventName as the frame type.
const (
	FrameJoinProject = "project:join"
	FrameAck         = "ack"
	FramePing        = "ping"
	FramePong        = "pong"
)

// Join acknowledgement error codes shared between server and clients.
const (
	JoinErrNotConnected    = "NOT_CONNECTED"
	JoinErrNotAMember      = "NOT_A_MEMBER"
	JoinErrProjectNotFound = "PROJECT_NOT_FOUND"
	JoinErrBadRequest      = "BAD_REQUEST"
)

// ClientFrame is a message sent from a client over the socket. ID correlates
// request frames with their ack.
type ClientFrame struct {
	Type    string          `json:"type"`
	ID      uint64          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServerFrame is a message pushed from the server. For events, Type is the
// EventName and Payload is the event payload; for acks, ID echoes the request
// frame.
type ServerFrame struct {
	Type    string          `json:"type"`
	ID      uint64          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinProjectPayload is the payload of a project:join request frame.
type JoinProjectPayload struct {
	ProjectID string `json:"projectId"`
}

// AckPayload is the payload of an ack frame answering a request.
type AckPayload struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
