package service

import (
	"errors"
	"time"

	"lms-consulting-portal/backend/internal/models"

	"gorm.io/gorm"
)

// ErrSessionNotFound is returned when a session id matches nothing
var ErrSessionNotFound = errors.New("session not found")

// SessionService owns the chat session store
type SessionService struct {
	db *gorm.DB
}

// NewSessionService creates a new session service
func NewSessionService(db *gorm.DB) *SessionService {
	return &SessionService{db: db}
}

// Create persists a new active session for the given participant. The id is
// server-generated; the participant tag is fixed for the session's lifetime.
func (s *SessionService) Create(participantID uint, participantType models.ParticipantType) (*models.ChatSession, error) {
	session := &models.ChatSession{
		ParticipantID:   participantID,
		ParticipantType: participantType,
		Status:          models.SessionActive,
		CreatedAt:       time.Now(),
	}
	if err := s.db.Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

// GetByID loads a session by id
func (s *SessionService) GetByID(id string) (*models.ChatSession, error) {
	var session models.ChatSession
	err := s.db.First(&session, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// ResolveView loads a session with its participant's display fields
// resolved, the shape broadcast to the admin room on session creation.
func (s *SessionService) ResolveView(id string) (*models.SessionView, error) {
	session, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	view := &models.SessionView{ChatSession: *session}
	if err := s.resolveParticipant(view); err != nil {
		return nil, err
	}
	return view, nil
}

// ActiveSessions returns all active sessions, newest first, with participant
// display fields resolved for the admin dashboard.
func (s *SessionService) ActiveSessions() ([]models.SessionView, error) {
	var sessions []models.ChatSession
	err := s.db.
		Where("status = ?", models.SessionActive).
		Order("created_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}

	views := make([]models.SessionView, 0, len(sessions))
	for _, session := range sessions {
		view := models.SessionView{ChatSession: session}
		if err := s.resolveParticipant(&view); err != nil {
			// A dangling participant reference should not hide the rest
			// of the dashboard; the session is listed without a name.
			views = append(views, view)
			continue
		}
		views = append(views, view)
	}
	return views, nil
}

// Terminate flips a session's status to terminated. The transition is
// one-way: nothing ever writes active back, and terminating an already
// terminated session is a harmless repeat of the same update.
func (s *SessionService) Terminate(id string) error {
	result := s.db.Model(&models.ChatSession{}).
		Where("id = ?", id).
		Update("status", models.SessionTerminated)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// PurgeExpired hard-deletes sessions created before the cutoff, regardless
// of status, along with their messages. Returns the number of sessions and
// messages removed.
func (s *SessionService) PurgeExpired(retention time.Duration) (int64, int64, error) {
	cutoff := time.Now().Add(-retention)

	var ids []string
	if err := s.db.Model(&models.ChatSession{}).
		Where("created_at < ?", cutoff).
		Pluck("id", &ids).Error; err != nil {
		return 0, 0, err
	}
	if len(ids) == 0 {
		return 0, 0, nil
	}

	// Messages first so a crash between the two deletes cannot orphan them
	msgResult := s.db.Where("session_id IN ?", ids).Delete(&models.Message{})
	if msgResult.Error != nil {
		return 0, 0, msgResult.Error
	}

	sessResult := s.db.Where("id IN ?", ids).Delete(&models.ChatSession{})
	if sessResult.Error != nil {
		return 0, msgResult.RowsAffected, sessResult.Error
	}

	return sessResult.RowsAffected, msgResult.RowsAffected, nil
}

// resolveParticipant fills the display field matching the session's
// participant tag
func (s *SessionService) resolveParticipant(view *models.SessionView) error {
	switch view.ParticipantType {
	case models.ParticipantEmployee:
		var employee models.Employee
		if err := s.db.Select("id", "full_name").First(&employee, view.ParticipantID).Error; err != nil {
			return err
		}
		view.FullName = employee.FullName
	case models.ParticipantConsultant:
		var consultant models.Consultant
		if err := s.db.Select("id", "organization_name").First(&consultant, view.ParticipantID).Error; err != nil {
			return err
		}
		view.OrganizationName = consultant.OrganizationName
	}
	return nil
}
