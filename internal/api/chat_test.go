package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lms-consulting-portal/backend/internal/models"
	"lms-consulting-portal/backend/internal/service"
	"lms-consulting-portal/backend/pkg/logger"
)

type stubSessions struct {
	views   []models.SessionView
	listErr error
	byID    map[string]*models.ChatSession
}

func (s *stubSessions) ActiveSessions() ([]models.SessionView, error) {
	return s.views, s.listErr
}

func (s *stubSessions) GetByID(id string) (*models.ChatSession, error) {
	if session, ok := s.byID[id]; ok {
		return session, nil
	}
	return nil, service.ErrSessionNotFound
}

type stubMessages struct {
	history map[string][]models.Message
	err     error
}

func (s *stubMessages) History(sessionID string) ([]models.Message, error) {
	return s.history[sessionID], s.err
}

type stubCanned struct {
	responses []models.CannedResponse
	created   []*models.CannedResponse
	err       error
}

func (s *stubCanned) List(ctx context.Context) ([]models.CannedResponse, error) {
	return s.responses, s.err
}

func (s *stubCanned) Create(ctx context.Context, response *models.CannedResponse) error {
	if s.err != nil {
		return s.err
	}
	response.ID = uint(len(s.created) + 1)
	s.created = append(s.created, response)
	return nil
}

func newChatRouter(sessions *stubSessions, messages *stubMessages, canned *stubCanned) *gin.Engine {
	gin.SetMode(gin.TestMode)

	handler := NewChatHandler(sessions, messages, canned, logger.New(logger.Config{Level: "error"}))
	r := gin.New()
	r.GET("/api/chat/sessions", handler.ActiveSessions)
	r.GET("/api/chat/messages/:sessionId", handler.MessageHistory)
	r.GET("/api/chat/canned-responses", handler.CannedResponses)
	r.POST("/api/chat/canned-responses", handler.CreateCannedResponse)
	return r
}

func TestActiveSessions(t *testing.T) {
	sessions := &stubSessions{
		views: []models.SessionView{
			{
				ChatSession: models.ChatSession{ID: "s1", ParticipantType: models.ParticipantEmployee, Status: models.SessionActive},
				FullName:    "Jordan Reyes",
			},
			{
				ChatSession:      models.ChatSession{ID: "s2", ParticipantType: models.ParticipantConsultant, Status: models.SessionActive},
				OrganizationName: "Bright Path",
			},
		},
	}
	r := newChatRouter(sessions, &stubMessages{}, &stubCanned{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/chat/sessions", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Sessions []models.SessionView `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Sessions, 2)
	assert.Equal(t, "Jordan Reyes", body.Sessions[0].ParticipantName())
	assert.Equal(t, "Bright Path", body.Sessions[1].ParticipantName())
}

func TestActiveSessionsStoreError(t *testing.T) {
	sessions := &stubSessions{listErr: errors.New("database down")}
	r := newChatRouter(sessions, &stubMessages{}, &stubCanned{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/chat/sessions", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestMessageHistory(t *testing.T) {
	sessions := &stubSessions{
		byID: map[string]*models.ChatSession{
			"s1": {ID: "s1", Status: models.SessionActive},
		},
	}
	messages := &stubMessages{
		history: map[string][]models.Message{
			"s1": {
				{ID: 1, SessionID: "s1", Sender: models.SenderUser, Text: "hello"},
				{ID: 2, SessionID: "s1", Sender: models.SenderAdmin, Text: "hi there"},
			},
		},
	}
	r := newChatRouter(sessions, messages, &stubCanned{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/chat/messages/s1", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Messages []models.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Messages, 2)
	assert.Equal(t, "hello", body.Messages[0].Text)
	assert.Equal(t, models.SenderAdmin, body.Messages[1].Sender)
}

func TestMessageHistoryUnknownSession(t *testing.T) {
	r := newChatRouter(&stubSessions{}, &stubMessages{}, &stubCanned{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/chat/messages/missing", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCannedResponses(t *testing.T) {
	canned := &stubCanned{
		responses: []models.CannedResponse{
			{ID: 1, Title: "Greeting", Text: "Hi! How can we help today?"},
		},
	}
	r := newChatRouter(&stubSessions{}, &stubMessages{}, canned)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/chat/canned-responses", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		CannedResponses []models.CannedResponse `json:"cannedResponses"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.CannedResponses, 1)
	assert.Equal(t, "Greeting", body.CannedResponses[0].Title)
}

func TestCreateCannedResponse(t *testing.T) {
	canned := &stubCanned{}
	r := newChatRouter(&stubSessions{}, &stubMessages{}, canned)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat/canned-responses",
		strings.NewReader(`{"title":"Greeting","text":"Hi! How can we help today?"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, canned.created, 1)
	assert.Equal(t, "Greeting", canned.created[0].Title)
	assert.Equal(t, "Hi! How can we help today?", canned.created[0].Text)
}

func TestCreateCannedResponseRequiresTitleAndText(t *testing.T) {
	canned := &stubCanned{}
	r := newChatRouter(&stubSessions{}, &stubMessages{}, canned)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat/canned-responses",
		strings.NewReader(`{"title":"Greeting"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, canned.created)
}
