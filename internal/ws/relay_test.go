package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lms-consulting-portal/backend/internal/models"
	"lms-consulting-portal/backend/pkg/logger"
	"lms-consulting-portal/backend/pkg/resilience"
)

type fakeSessionStore struct {
	mu           sync.Mutex
	seq          int
	sessions     map[string]*models.ChatSession
	createErr    error
	terminateErr error
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]*models.ChatSession)}
}

func (f *fakeSessionStore) Create(participantID uint, participantType models.ParticipantType) (*models.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return nil, f.createErr
	}
	f.seq++
	s := &models.ChatSession{
		ID:              fmt.Sprintf("session-%d", f.seq),
		ParticipantID:   participantID,
		ParticipantType: participantType,
		Status:          models.SessionActive,
	}
	f.sessions[s.ID] = s
	return s, nil
}

func (f *fakeSessionStore) ResolveView(id string) (*models.SessionView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sessions[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return &models.SessionView{ChatSession: *s, FullName: "Jordan Reyes"}, nil
}

func (f *fakeSessionStore) Terminate(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.terminateErr != nil {
		return f.terminateErr
	}
	s, ok := f.sessions[id]
	if !ok {
		return errors.New("not found")
	}
	s.Status = models.SessionTerminated
	return nil
}

type fakeMessageStore struct {
	mu        sync.Mutex
	messages  []*models.Message
	appendErr error
}

func (f *fakeMessageStore) Append(msg *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.appendErr != nil {
		return f.appendErr
	}
	msg.ID = uint(len(f.messages) + 1)
	f.messages = append(f.messages, msg)
	return nil
}

// gatedMessageStore records the first append durably, then blocks its
// return until released, leaving a window for a concurrent sender.
type gatedMessageStore struct {
	mu        sync.Mutex
	messages  []*models.Message
	committed chan struct{}
	release   chan struct{}
}

func newGatedMessageStore() *gatedMessageStore {
	return &gatedMessageStore{
		committed: make(chan struct{}),
		release:   make(chan struct{}),
	}
}

func (s *gatedMessageStore) Append(msg *models.Message) error {
	s.mu.Lock()
	msg.ID = uint(len(s.messages) + 1)
	s.messages = append(s.messages, msg)
	first := len(s.messages) == 1
	s.mu.Unlock()

	if first {
		close(s.committed)
		<-s.release
	}
	return nil
}

func (s *gatedMessageStore) texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.messages))
	for i, m := range s.messages {
		out[i] = m.Text
	}
	return out
}

type relayFixture struct {
	hub      *Hub
	relay    *Relay
	sessions *fakeSessionStore
	messages *fakeMessageStore
}

func newRelayFixture(t *testing.T) *relayFixture {
	t.Helper()

	log := logger.New(logger.Config{Level: "error"})
	sessions := newFakeSessionStore()
	messages := &fakeMessageStore{}
	hub := NewHub(log, nil)
	breaker := resilience.NewCircuitBreaker(resilience.DefaultConfig("test"), log)
	relay := NewRelay(sessions, messages, hub, breaker, log, nil, 4000)

	return &relayFixture{hub: hub, relay: relay, sessions: sessions, messages: messages}
}

func (fx *relayFixture) newClient() *Client {
	return &Client{
		hub:  fx.hub,
		send: make(chan []byte, 16),
		log:  logger.New(logger.Config{Level: "error"}),
	}
}

func (fx *relayFixture) dispatch(t *testing.T, c *Client, eventType string, content interface{}) {
	t.Helper()

	raw, err := json.Marshal(content)
	require.NoError(t, err)
	fx.relay.Dispatch(c, &Envelope{Type: eventType, Content: raw})
}

// drainEvents decodes everything currently queued on a client
func drainEvents(t *testing.T, c *Client) []Envelope {
	t.Helper()

	var events []Envelope
	for {
		select {
		case raw := <-c.send:
			var env Envelope
			require.NoError(t, json.Unmarshal(raw, &env))
			events = append(events, env)
		default:
			return events
		}
	}
}

func eventTypes(events []Envelope) []string {
	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	return types
}

func TestFirstUserMessageOpensSession(t *testing.T) {
	fx := newRelayFixture(t)
	user := fx.newClient()
	admin := fx.newClient()
	fx.hub.Join(AdminRoom, admin)

	fx.dispatch(t, user, EventAnnounceUser, AnnounceUserPayload{
		UserID: 7,
		User:   UserInfo{Type: "employee", Name: "Jordan Reyes"},
	})
	fx.dispatch(t, user, EventSendMessage, SendMessagePayload{
		Sender:     models.SenderUser,
		SenderName: "Jordan Reyes",
		Text:       "Hello, I need help with course pricing",
	})

	// A session was created for the announced identity
	require.Len(t, fx.sessions.sessions, 1)
	var session *models.ChatSession
	for _, s := range fx.sessions.sessions {
		session = s
	}
	assert.Equal(t, uint(7), session.ParticipantID)
	assert.Equal(t, models.ParticipantEmployee, session.ParticipantType)
	assert.Equal(t, models.SessionActive, session.Status)

	// The sender was told about the session before receiving its own message
	userEvents := drainEvents(t, user)
	require.Equal(t, []string{EventSessionStarted, EventNewMessage}, eventTypes(userEvents))

	var started models.ChatSession
	require.NoError(t, json.Unmarshal(userEvents[0].Content, &started))
	assert.Equal(t, session.ID, started.ID)

	var relayed models.Message
	require.NoError(t, json.Unmarshal(userEvents[1].Content, &relayed))
	assert.Equal(t, session.ID, relayed.SessionID)
	assert.Equal(t, "Hello, I need help with course pricing", relayed.Text)

	// Admins got a new-session notice with the participant resolved, but
	// no message content
	adminEvents := drainEvents(t, admin)
	require.Equal(t, []string{EventNewSession}, eventTypes(adminEvents))

	var view models.SessionView
	require.NoError(t, json.Unmarshal(adminEvents[0].Content, &view))
	assert.Equal(t, session.ID, view.ID)
	assert.Equal(t, "Jordan Reyes", view.FullName)

	// The message itself was persisted
	require.Len(t, fx.messages.messages, 1)
	assert.Equal(t, session.ID, fx.messages.messages[0].SessionID)
}

func TestMessagesDeliveredInOrder(t *testing.T) {
	fx := newRelayFixture(t)
	user := fx.newClient()
	admin := fx.newClient()

	fx.dispatch(t, user, EventAnnounceUser, AnnounceUserPayload{
		UserID: 3,
		User:   UserInfo{Type: "consultant", Name: "Acme Learning"},
	})
	fx.dispatch(t, user, EventSendMessage, SendMessagePayload{
		Sender:     models.SenderUser,
		SenderName: "Acme Learning",
		Text:       "first",
	})

	sessionID := fx.messages.messages[0].SessionID
	fx.hub.Join(sessionID, admin)

	texts := []string{"second", "third", "fourth"}
	for _, text := range texts {
		fx.dispatch(t, user, EventSendMessage, SendMessagePayload{
			SessionID:  sessionID,
			Sender:     models.SenderUser,
			SenderName: "Acme Learning",
			Text:       text,
		})
	}

	adminEvents := drainEvents(t, admin)
	require.Len(t, adminEvents, len(texts))
	for i, env := range adminEvents {
		require.Equal(t, EventNewMessage, env.Type)
		var msg models.Message
		require.NoError(t, json.Unmarshal(env.Content, &msg))
		assert.Equal(t, texts[i], msg.Text)
	}
}

func TestConcurrentSendersBroadcastInDurableOrder(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	store := newGatedMessageStore()
	hub := NewHub(log, nil)
	breaker := resilience.NewCircuitBreaker(resilience.DefaultConfig("test"), log)
	relay := NewRelay(newFakeSessionStore(), store, hub, breaker, log, nil, 4000)

	const sessionID = "session-live"
	senderA := &Client{hub: hub, send: make(chan []byte, 16), log: log}
	senderB := &Client{hub: hub, send: make(chan []byte, 16), log: log}
	observer := &Client{hub: hub, send: make(chan []byte, 16), log: log}
	hub.Join(sessionID, senderA)
	hub.Join(sessionID, senderB)
	hub.Join(sessionID, observer)

	dispatch := func(c *Client, text string) {
		raw, _ := json.Marshal(SendMessagePayload{
			SessionID:  sessionID,
			Sender:     models.SenderUser,
			SenderName: "X",
			Text:       text,
		})
		relay.Dispatch(c, &Envelope{Type: EventSendMessage, Content: raw})
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		dispatch(senderA, "first-written")
	}()

	// A's message is durable but its broadcast has not happened yet
	<-store.committed

	go func() {
		defer wg.Done()
		dispatch(senderB, "second-written")
	}()

	// Let B reach the session; it must queue behind A's in-flight send
	time.Sleep(50 * time.Millisecond)
	close(store.release)
	wg.Wait()

	require.Equal(t, []string{"first-written", "second-written"}, store.texts())

	// The room saw the messages in the order the store wrote them
	events := drainEvents(t, observer)
	require.Equal(t, []string{EventNewMessage, EventNewMessage}, eventTypes(events))
	var got []string
	for _, env := range events {
		var msg models.Message
		require.NoError(t, json.Unmarshal(env.Content, &msg))
		got = append(got, msg.Text)
	}
	assert.Equal(t, []string{"first-written", "second-written"}, got)
}

func TestAdminRoomMembershipDoesNotLeakMessages(t *testing.T) {
	fx := newRelayFixture(t)
	user := fx.newClient()
	admin := fx.newClient()
	fx.hub.Join(AdminRoom, admin)

	fx.dispatch(t, user, EventAnnounceUser, AnnounceUserPayload{
		UserID: 5,
		User:   UserInfo{Type: "employee", Name: "Sam Patel"},
	})
	fx.dispatch(t, user, EventSendMessage, SendMessagePayload{
		Sender:     models.SenderUser,
		SenderName: "Sam Patel",
		Text:       "is anyone there?",
	})

	// The admin saw the session open but never the message: delivery
	// requires joining the session's own room
	adminEvents := drainEvents(t, admin)
	require.Equal(t, []string{EventNewSession}, eventTypes(adminEvents))
}

func TestRepeatJoinDeliversOnce(t *testing.T) {
	fx := newRelayFixture(t)
	user := fx.newClient()
	admin := fx.newClient()

	fx.dispatch(t, user, EventAnnounceUser, AnnounceUserPayload{
		UserID: 9,
		User:   UserInfo{Type: "employee", Name: "Dana Cole"},
	})
	fx.dispatch(t, user, EventSendMessage, SendMessagePayload{
		Sender:     models.SenderUser,
		SenderName: "Dana Cole",
		Text:       "opening",
	})
	sessionID := fx.messages.messages[0].SessionID

	fx.dispatch(t, admin, EventJoinRoom, sessionID)
	fx.dispatch(t, admin, EventJoinRoom, sessionID)
	assert.Equal(t, 2, fx.hub.RoomSize(sessionID))

	fx.dispatch(t, admin, EventSendMessage, SendMessagePayload{
		SessionID:  sessionID,
		Sender:     models.SenderAdmin,
		SenderName: "Support",
		Text:       "hello",
	})

	adminEvents := drainEvents(t, admin)
	require.Equal(t, []string{EventNewMessage}, eventTypes(adminEvents))
}

func TestTerminateIsFinal(t *testing.T) {
	fx := newRelayFixture(t)
	user := fx.newClient()
	admin := fx.newClient()
	fx.hub.Join(AdminRoom, admin)

	fx.dispatch(t, user, EventAnnounceUser, AnnounceUserPayload{
		UserID: 2,
		User:   UserInfo{Type: "consultant", Name: "Bright Path"},
	})
	fx.dispatch(t, user, EventSendMessage, SendMessagePayload{
		Sender:     models.SenderUser,
		SenderName: "Bright Path",
		Text:       "hi",
	})
	sessionID := fx.messages.messages[0].SessionID
	drainEvents(t, admin)

	fx.dispatch(t, admin, EventTerminate, SessionTerminatedPayload{SessionID: sessionID})
	assert.Equal(t, models.SessionTerminated, fx.sessions.sessions[sessionID].Status)

	adminEvents := drainEvents(t, admin)
	require.Equal(t, []string{EventSessionTerminated}, eventTypes(adminEvents))
	var notice SessionTerminatedPayload
	require.NoError(t, json.Unmarshal(adminEvents[0].Content, &notice))
	assert.Equal(t, sessionID, notice.SessionID)

	// Terminating again changes nothing; the status never goes back
	fx.dispatch(t, admin, EventTerminate, SessionTerminatedPayload{SessionID: sessionID})
	assert.Equal(t, models.SessionTerminated, fx.sessions.sessions[sessionID].Status)
}

func TestMessageSaveFailureSkipsBroadcast(t *testing.T) {
	fx := newRelayFixture(t)
	fx.messages.appendErr = errors.New("database down")

	user := fx.newClient()
	peer := fx.newClient()
	fx.hub.Join("session-existing", user)
	fx.hub.Join("session-existing", peer)

	fx.dispatch(t, user, EventSendMessage, SendMessagePayload{
		SessionID:  "session-existing",
		Sender:     models.SenderUser,
		SenderName: "Jordan Reyes",
		Text:       "will not survive",
	})

	// The sender got a nack; nobody in the room got the message
	userEvents := drainEvents(t, user)
	require.Equal(t, []string{EventError}, eventTypes(userEvents))
	var nack ErrorPayload
	require.NoError(t, json.Unmarshal(userEvents[0].Content, &nack))
	assert.Equal(t, "MESSAGE_SAVE_FAILED", nack.Code)

	assert.Empty(t, drainEvents(t, peer))
	assert.Empty(t, fx.messages.messages)
}

func TestSessionCreateFailureNacksSender(t *testing.T) {
	fx := newRelayFixture(t)
	fx.sessions.createErr = errors.New("database down")

	user := fx.newClient()
	fx.dispatch(t, user, EventAnnounceUser, AnnounceUserPayload{
		UserID: 4,
		User:   UserInfo{Type: "employee", Name: "Sam Patel"},
	})
	fx.dispatch(t, user, EventSendMessage, SendMessagePayload{
		Sender:     models.SenderUser,
		SenderName: "Sam Patel",
		Text:       "hi",
	})

	events := drainEvents(t, user)
	require.Equal(t, []string{EventError}, eventTypes(events))
	var nack ErrorPayload
	require.NoError(t, json.Unmarshal(events[0].Content, &nack))
	assert.Equal(t, "SESSION_CREATE_FAILED", nack.Code)
	assert.Empty(t, fx.messages.messages)
}

func TestAdminAnnouncementFlagNames(t *testing.T) {
	tests := []struct {
		name     string
		identity AdminIdentity
		joined   bool
	}{
		{"camel flag", AdminIdentity{Name: "Ops", IsAdmin: true}, true},
		{"snake flag", AdminIdentity{Name: "Ops", IsAdminSnake: true}, true},
		{"both flags", AdminIdentity{Name: "Ops", IsAdmin: true, IsAdminSnake: true}, true},
		{"no flag", AdminIdentity{Name: "Visitor"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newRelayFixture(t)
			c := fx.newClient()

			fx.dispatch(t, c, EventAnnounceAdmin, AnnounceAdminPayload{Identity: tt.identity})

			assert.Equal(t, tt.joined, fx.hub.InRoom(AdminRoom, c))
			// Rejection is silent either way
			assert.Empty(t, drainEvents(t, c))
		})
	}
}

func TestSendMessageValidation(t *testing.T) {
	tests := []struct {
		name     string
		announce bool
		role     string
		payload  SendMessagePayload
		wantCode string
	}{
		{
			name:     "empty text",
			payload:  SendMessagePayload{Sender: models.SenderUser, Text: "   "},
			wantCode: "EMPTY_MESSAGE",
		},
		{
			name:     "invalid sender",
			payload:  SendMessagePayload{Sender: "moderator", Text: "hi"},
			wantCode: "INVALID_SENDER",
		},
		{
			name:     "admin without session",
			payload:  SendMessagePayload{Sender: models.SenderAdmin, Text: "hi"},
			wantCode: "SESSION_REQUIRED",
		},
		{
			name:     "no identity announced",
			payload:  SendMessagePayload{Sender: models.SenderUser, Text: "hi"},
			wantCode: "IDENTITY_REQUIRED",
		},
		{
			name:     "unknown role",
			announce: true,
			role:     "superuser",
			payload:  SendMessagePayload{Sender: models.SenderUser, Text: "hi"},
			wantCode: "UNKNOWN_ROLE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newRelayFixture(t)
			c := fx.newClient()

			if tt.announce {
				fx.dispatch(t, c, EventAnnounceUser, AnnounceUserPayload{
					UserID: 1,
					User:   UserInfo{Type: tt.role, Name: "X"},
				})
			}
			fx.dispatch(t, c, EventSendMessage, tt.payload)

			events := drainEvents(t, c)
			require.Equal(t, []string{EventError}, eventTypes(events))
			var nack ErrorPayload
			require.NoError(t, json.Unmarshal(events[0].Content, &nack))
			assert.Equal(t, tt.wantCode, nack.Code)
			assert.Empty(t, fx.sessions.sessions)
			assert.Empty(t, fx.messages.messages)
		})
	}
}

func TestMessageTooLong(t *testing.T) {
	fx := newRelayFixture(t)
	c := fx.newClient()

	long := make([]byte, 4001)
	for i := range long {
		long[i] = 'a'
	}
	fx.dispatch(t, c, EventSendMessage, SendMessagePayload{
		SessionID: "session-existing",
		Sender:    models.SenderUser,
		Text:      string(long),
	})

	events := drainEvents(t, c)
	require.Equal(t, []string{EventError}, eventTypes(events))
	var nack ErrorPayload
	require.NoError(t, json.Unmarshal(events[0].Content, &nack))
	assert.Equal(t, "MESSAGE_TOO_LONG", nack.Code)
}

func TestIdentityIsImmutable(t *testing.T) {
	fx := newRelayFixture(t)
	c := fx.newClient()

	fx.dispatch(t, c, EventAnnounceUser, AnnounceUserPayload{
		UserID: 10,
		User:   UserInfo{Type: "employee", Name: "First"},
	})
	fx.dispatch(t, c, EventAnnounceUser, AnnounceUserPayload{
		UserID: 11,
		User:   UserInfo{Type: "consultant", Name: "Second"},
	})

	id := c.Identity()
	require.NotNil(t, id)
	assert.Equal(t, uint(10), id.UserID)
	assert.Equal(t, "First", id.Name)
}

func TestPingPong(t *testing.T) {
	fx := newRelayFixture(t)
	c := fx.newClient()

	fx.relay.Dispatch(c, &Envelope{Type: EventPing})

	events := drainEvents(t, c)
	require.Equal(t, []string{EventPong}, eventTypes(events))
}
