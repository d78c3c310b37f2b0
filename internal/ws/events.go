package ws

import (
	"encoding/json"

	"lms-consulting-portal/backend/internal/models"
)

// Event names exchanged over the socket. Client-to-server events drive the
// relay; server-to-client events are fanned out through rooms.
const (
	// client → server
	EventAnnounceAdmin = "announce-admin-presence"
	EventAnnounceUser  = "announce-user-session"
	EventJoinRoom      = "join-room"
	EventSendMessage   = "send-message"
	EventTerminate     = "terminate-session"
	EventPing          = "ping"

	// server → client(s)
	EventNewSession        = "new-session"
	EventSessionStarted    = "session-started"
	EventNewMessage        = "new-message"
	EventSessionTerminated = "session-terminated"
	EventPong              = "pong"
	EventError             = "error"
)

// Envelope is the wire frame: an event name plus its payload
type Envelope struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content"`
}

func newEnvelope(eventType string, content interface{}) ([]byte, error) {
	raw, err := json.Marshal(content)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: eventType, Content: raw})
}

// AdminIdentity is the identity block of an admin-presence announcement.
// The admin capability flag historically appeared under two names, so both
// are accepted.
type AdminIdentity struct {
	Name         string `json:"name"`
	IsAdmin      bool   `json:"isAdmin"`
	IsAdminSnake bool   `json:"is_admin"`
}

// Admin reports whether the identity carries the admin flag under either name
func (a AdminIdentity) Admin() bool {
	return a.IsAdmin || a.IsAdminSnake
}

// AnnounceAdminPayload is the content of an announce-admin-presence event
type AnnounceAdminPayload struct {
	Identity AdminIdentity `json:"identity"`
}

// UserInfo is the profile block of a user-session announcement. Type is the
// raw role name ("employee" or "consultant"), not the session enum.
type UserInfo struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// AnnounceUserPayload is the content of an announce-user-session event
type AnnounceUserPayload struct {
	UserID uint     `json:"userId"`
	User   UserInfo `json:"user"`
}

// SendMessagePayload is the content of a send-message event. SessionID is
// empty on the first message of a new conversation.
type SendMessagePayload struct {
	SessionID  string        `json:"sessionId"`
	Sender     models.Sender `json:"sender"`
	SenderName string        `json:"senderName"`
	Text       string        `json:"text"`
}

// SessionTerminatedPayload notifies the admin room that a session closed
type SessionTerminatedPayload struct {
	SessionID string `json:"sessionId"`
}

// ErrorPayload is the nack sent back to a caller whose event was rejected
// or whose persistence failed
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
