package service

import (
	"time"

	"lms-consulting-portal/backend/internal/models"

	"gorm.io/gorm"
)

// MessageService owns the per-session message log
type MessageService struct {
	db *gorm.DB
}

// NewMessageService creates a new message service
func NewMessageService(db *gorm.DB) *MessageService {
	return &MessageService{db: db}
}

// Append persists a message. Ordering within a session is the server write
// order; the timestamp is assigned here if the caller left it zero.
func (s *MessageService) Append(message *models.Message) error {
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now()
	}
	return s.db.Create(message).Error
}

// History returns every message of a session in send order
func (s *MessageService) History(sessionID string) ([]models.Message, error) {
	var messages []models.Message
	err := s.db.
		Where("session_id = ?", sessionID).
		Order("timestamp ASC, id ASC").
		Find(&messages).Error
	return messages, err
}
