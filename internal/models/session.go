package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ParticipantType tags which identity collection a session's participant
// belongs to. The pair (ParticipantType, ParticipantID) is a polymorphic
// reference: Employee(id) | Consultant(id).
type ParticipantType string

const (
	ParticipantEmployee   ParticipantType = "Employee"
	ParticipantConsultant ParticipantType = "Consultant"
)

// ParticipantTypeFromRole normalizes a connection's declared role (e.g.
// "employee") to the session enum. Unknown roles are rejected so a session
// is never created with a tag that matches no identity collection.
func ParticipantTypeFromRole(role string) (ParticipantType, error) {
	switch strings.ToLower(role) {
	case "employee":
		return ParticipantEmployee, nil
	case "consultant":
		return ParticipantConsultant, nil
	default:
		return "", fmt.Errorf("unknown participant role %q", role)
	}
}

// SessionStatus is the lifecycle state of a chat session
type SessionStatus string

const (
	SessionActive     SessionStatus = "active"
	SessionTerminated SessionStatus = "terminated"
)

// ChatSession is one conversation between a single non-admin participant and
// the admin pool. Sessions are hard-deleted by the retention sweeper after
// the configured window from CreatedAt, regardless of status.
type ChatSession struct {
	ID              string          `gorm:"primaryKey;size:36" json:"id"`
	ParticipantID   uint            `gorm:"index;not null" json:"participantId"`
	ParticipantType ParticipantType `gorm:"not null" json:"participantType"`
	Status          SessionStatus   `gorm:"default:active" json:"status"`
	CreatedAt       time.Time       `gorm:"index" json:"createdAt"`
}

// BeforeCreate assigns a server-generated opaque id
func (s *ChatSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.Status == "" {
		s.Status = SessionActive
	}
	return nil
}

// SessionView is a session with the participant's display fields resolved,
// the shape the admin dashboard consumes. Which display field is populated
// depends on the participant type: employees carry a full name, consultants
// an organization name.
type SessionView struct {
	ChatSession
	FullName         string `json:"fullName,omitempty"`
	OrganizationName string `json:"organizationName,omitempty"`
}

// ParticipantName returns whichever display field the participant type uses
func (v *SessionView) ParticipantName() string {
	if v.FullName != "" {
		return v.FullName
	}
	return v.OrganizationName
}
