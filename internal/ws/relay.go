package ws

import (
	"encoding/json"
	"hash/fnv"
	"strings"
	"sync"

	"lms-consulting-portal/backend/internal/models"
	"lms-consulting-portal/backend/pkg/logger"
	"lms-consulting-portal/backend/pkg/resilience"
)

// SessionStore is the slice of session persistence the relay needs
type SessionStore interface {
	Create(participantID uint, participantType models.ParticipantType) (*models.ChatSession, error)
	ResolveView(id string) (*models.SessionView, error)
	Terminate(id string) error
}

// MessageStore is the slice of message persistence the relay needs
type MessageStore interface {
	Append(msg *models.Message) error
}

// Relay routes chat events between connections: it binds identities,
// lazily opens sessions on a user's first message, persists then fans out
// messages to session rooms, and notifies admins of session lifecycle
// changes. Messages only ever reach the session's own room; the admin
// room sees lifecycle events, not content.
type Relay struct {
	sessions  SessionStore
	messages  MessageStore
	hub       *Hub
	breaker   *resilience.CircuitBreaker
	log       *logger.Logger
	metrics   *Metrics
	maxLength int

	// sessionLocks serializes the store write and the fan-out per session,
	// striped by session id hash. A room must receive messages in the
	// order they were durably written even when senders are on different
	// connections.
	sessionLocks [64]sync.Mutex
}

// NewRelay creates a relay over the given stores and hub
func NewRelay(sessions SessionStore, messages MessageStore, hub *Hub, breaker *resilience.CircuitBreaker, log *logger.Logger, metrics *Metrics, maxMessageLength int) *Relay {
	return &Relay{
		sessions:  sessions,
		messages:  messages,
		hub:       hub,
		breaker:   breaker,
		log:       log,
		metrics:   metrics,
		maxLength: maxMessageLength,
	}
}

// Dispatch handles one inbound event from a connection. Callers invoke it
// inline from the read loop, so events from one connection are processed
// strictly in arrival order.
func (r *Relay) Dispatch(c *Client, env *Envelope) {
	switch env.Type {
	case EventAnnounceAdmin:
		r.handleAnnounceAdmin(c, env.Content)
	case EventAnnounceUser:
		r.handleAnnounceUser(c, env.Content)
	case EventJoinRoom:
		r.handleJoinRoom(c, env.Content)
	case EventSendMessage:
		r.handleSendMessage(c, env.Content)
	case EventTerminate:
		r.handleTerminate(c, env.Content)
	case EventPing:
		c.sendEvent(EventPong, nil)
	default:
		r.log.Warn("Unknown event type", "type", env.Type)
	}
}

// handleAnnounceAdmin joins the connection to the admin room when the
// announced identity carries an admin flag. Non-admin announcements are
// ignored without a reply; the connection learns nothing.
func (r *Relay) handleAnnounceAdmin(c *Client, content json.RawMessage) {
	var payload AnnounceAdminPayload
	if err := json.Unmarshal(content, &payload); err != nil {
		r.log.Warn("Malformed admin announcement", "error", err)
		return
	}

	if !payload.Identity.Admin() {
		return
	}

	c.setIdentity(Identity{
		Role:  "admin",
		Name:  payload.Identity.Name,
		Admin: true,
	})
	r.hub.Join(AdminRoom, c)
	r.log.Info("Admin joined", "name", payload.Identity.Name)
}

// handleAnnounceUser binds a user identity to the connection. The binding
// is first-wins: a connection that already announced keeps its original
// identity.
func (r *Relay) handleAnnounceUser(c *Client, content json.RawMessage) {
	var payload AnnounceUserPayload
	if err := json.Unmarshal(content, &payload); err != nil {
		r.log.Warn("Malformed user announcement", "error", err)
		c.sendEvent(EventError, ErrorPayload{Code: "BAD_ANNOUNCE", Message: "malformed user announcement"})
		return
	}

	if !c.setIdentity(Identity{
		UserID: payload.UserID,
		Role:   payload.User.Type,
		Name:   payload.User.Name,
	}) {
		r.log.Debug("Ignoring repeat announcement", "userId", payload.UserID)
	}
}

// handleJoinRoom adds the connection to a session room
func (r *Relay) handleJoinRoom(c *Client, content json.RawMessage) {
	var sessionID string
	if err := json.Unmarshal(content, &sessionID); err != nil || sessionID == "" {
		c.sendEvent(EventError, ErrorPayload{Code: "BAD_ROOM", Message: "room id required"})
		return
	}

	r.hub.Join(sessionID, c)
}

// handleSendMessage validates, persists and fans out one chat message. A
// user message without a session opens one first: the session is created,
// the sender joins its room, admins get a new-session notice and the
// sender gets a session-started echo, all before the message itself is
// stored and broadcast. Nothing is broadcast unless its store write
// succeeded.
func (r *Relay) handleSendMessage(c *Client, content json.RawMessage) {
	var payload SendMessagePayload
	if err := json.Unmarshal(content, &payload); err != nil {
		c.sendEvent(EventError, ErrorPayload{Code: "BAD_MESSAGE", Message: "malformed message"})
		return
	}

	payload.Text = strings.TrimSpace(payload.Text)
	if payload.Text == "" {
		c.sendEvent(EventError, ErrorPayload{Code: "EMPTY_MESSAGE", Message: "message text required"})
		return
	}
	if r.maxLength > 0 && len(payload.Text) > r.maxLength {
		c.sendEvent(EventError, ErrorPayload{Code: "MESSAGE_TOO_LONG", Message: "message exceeds maximum length"})
		return
	}
	if payload.Sender != models.SenderUser && payload.Sender != models.SenderAdmin {
		c.sendEvent(EventError, ErrorPayload{Code: "INVALID_SENDER", Message: "sender must be user or admin"})
		return
	}

	sessionID := payload.SessionID
	if sessionID == "" {
		if payload.Sender != models.SenderUser {
			// Admins reply into existing sessions; they never open one
			c.sendEvent(EventError, ErrorPayload{Code: "SESSION_REQUIRED", Message: "session id required"})
			return
		}

		session, ok := r.openSession(c)
		if !ok {
			return
		}
		sessionID = session.ID
	} else if !r.hub.InRoom(sessionID, c) {
		r.hub.Join(sessionID, c)
	}

	lock := r.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	msg := &models.Message{
		SessionID:  sessionID,
		Sender:     payload.Sender,
		SenderName: payload.SenderName,
		Text:       payload.Text,
	}
	if err := r.breaker.Execute(func() error {
		return r.messages.Append(msg)
	}); err != nil {
		r.log.WithSessionID(sessionID).Error("Failed to save message", "error", err)
		c.sendEvent(EventError, ErrorPayload{Code: "MESSAGE_SAVE_FAILED", Message: "message could not be saved"})
		return
	}

	r.metrics.MessageRelayed()
	r.broadcastEvent(sessionID, EventNewMessage, msg)
}

// openSession creates a session for the sending connection and announces
// it. Returns ok=false after notifying the sender if anything failed.
func (r *Relay) openSession(c *Client) (*models.ChatSession, bool) {
	identity := c.Identity()
	if identity == nil || identity.UserID == 0 {
		c.sendEvent(EventError, ErrorPayload{Code: "IDENTITY_REQUIRED", Message: "announce a user before sending"})
		return nil, false
	}

	participantType, err := models.ParticipantTypeFromRole(identity.Role)
	if err != nil {
		c.sendEvent(EventError, ErrorPayload{Code: "UNKNOWN_ROLE", Message: "cannot start a session for this role"})
		return nil, false
	}

	var session *models.ChatSession
	if err := r.breaker.Execute(func() error {
		var cerr error
		session, cerr = r.sessions.Create(identity.UserID, participantType)
		return cerr
	}); err != nil {
		r.log.Error("Failed to create session", "userId", identity.UserID, "error", err)
		c.sendEvent(EventError, ErrorPayload{Code: "SESSION_CREATE_FAILED", Message: "session could not be created"})
		return nil, false
	}

	r.hub.Join(session.ID, c)
	r.metrics.SessionStarted()

	log := r.log.WithSessionID(session.ID)
	log.Info("Chat session started", "userId", identity.UserID)

	// Admins see the resolved view so the list shows a participant name
	// even before the first message lands
	view, err := r.sessions.ResolveView(session.ID)
	if err != nil {
		log.Error("Failed to resolve session view", "error", err)
		r.broadcastEvent(AdminRoom, EventNewSession, session)
	} else {
		r.broadcastEvent(AdminRoom, EventNewSession, view)
	}

	c.sendEvent(EventSessionStarted, session)
	return session, true
}

// handleTerminate marks a session terminated and tells the admin room.
// Terminated is final; the session store rejects nothing here, it simply
// stops matching the active filter. Room members are not evicted, they
// just stop receiving new messages once senders see the terminal status.
func (r *Relay) handleTerminate(c *Client, content json.RawMessage) {
	var payload SessionTerminatedPayload
	if err := json.Unmarshal(content, &payload); err != nil || payload.SessionID == "" {
		c.sendEvent(EventError, ErrorPayload{Code: "BAD_TERMINATE", Message: "session id required"})
		return
	}

	if err := r.breaker.Execute(func() error {
		return r.sessions.Terminate(payload.SessionID)
	}); err != nil {
		r.log.WithSessionID(payload.SessionID).Error("Failed to terminate session", "error", err)
		c.sendEvent(EventError, ErrorPayload{Code: "TERMINATE_FAILED", Message: "session could not be terminated"})
		return
	}

	r.metrics.SessionTerminated()
	r.broadcastEvent(AdminRoom, EventSessionTerminated, SessionTerminatedPayload{SessionID: payload.SessionID})
}

// sessionLock returns the stripe guarding a session's write-then-broadcast
// sequence
func (r *Relay) sessionLock(sessionID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(sessionID))
	return &r.sessionLocks[h.Sum32()%uint32(len(r.sessionLocks))]
}

func (r *Relay) broadcastEvent(room, eventType string, content interface{}) {
	payload, err := newEnvelope(eventType, content)
	if err != nil {
		r.log.Error("Failed to encode broadcast", "type", eventType, "error", err)
		return
	}
	r.hub.Broadcast(room, payload)
}
