package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"lms-consulting-portal/backend/internal/models"
	"lms-consulting-portal/backend/internal/service"
	"lms-consulting-portal/backend/pkg/logger"
)

// SessionLister is the slice of session persistence the chat endpoints use
type SessionLister interface {
	ActiveSessions() ([]models.SessionView, error)
	GetByID(id string) (*models.ChatSession, error)
}

// MessageHistory reads a session's ordered message log
type MessageHistory interface {
	History(sessionID string) ([]models.Message, error)
}

// CannedStore serves and maintains the admin reply shortcuts
type CannedStore interface {
	List(ctx context.Context) ([]models.CannedResponse, error)
	Create(ctx context.Context, response *models.CannedResponse) error
}

// ChatHandler serves the REST side of the chat feature: the admin
// dashboard's session list, per-session history and canned responses. The
// live traffic itself goes over the websocket relay.
type ChatHandler struct {
	sessions SessionLister
	messages MessageHistory
	canned   CannedStore
	logger   *logger.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(sessions SessionLister, messages MessageHistory, canned CannedStore, logger *logger.Logger) *ChatHandler {
	return &ChatHandler{
		sessions: sessions,
		messages: messages,
		canned:   canned,
		logger:   logger,
	}
}

// ActiveSessions lists open sessions with participant names resolved,
// newest first. Admin only.
func (h *ChatHandler) ActiveSessions(c *gin.Context) {
	sessions, err := h.sessions.ActiveSessions()
	if err != nil {
		h.logger.Error("Error listing active sessions", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list sessions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// MessageHistory returns a session's messages in timestamp order
func (h *ChatHandler) MessageHistory(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session id required"})
		return
	}

	if _, err := h.sessions.GetByID(sessionID); err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		h.logger.Error("Error loading session", "sessionId", sessionID, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load session"})
		return
	}

	messages, err := h.messages.History(sessionID)
	if err != nil {
		h.logger.Error("Error loading message history", "sessionId", sessionID, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// CannedResponses returns the admin reply shortcuts
func (h *ChatHandler) CannedResponses(c *gin.Context) {
	responses, err := h.canned.List(c.Request.Context())
	if err != nil {
		h.logger.Error("Error loading canned responses", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load canned responses"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"cannedResponses": responses})
}

// CreateCannedResponse adds a reply shortcut and invalidates the cached
// list. Admin only.
func (h *ChatHandler) CreateCannedResponse(c *gin.Context) {
	var req struct {
		Title string `json:"title" binding:"required"`
		Text  string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title and text are required"})
		return
	}

	response := &models.CannedResponse{Title: req.Title, Text: req.Text}
	if err := h.canned.Create(c.Request.Context(), response); err != nil {
		h.logger.Error("Error creating canned response", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create canned response"})
		return
	}

	c.JSON(http.StatusCreated, response)
}
