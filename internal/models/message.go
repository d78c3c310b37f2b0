package models

import (
	"time"
)

// Sender distinguishes the two parties of a session
type Sender string

const (
	SenderUser  Sender = "user"
	SenderAdmin Sender = "admin"
)

// Message is one entry in a session's ordered log. Messages are never
// mutated after creation; they disappear only when the owning session is
// purged by the retention sweeper. SenderName is captured at send-time and
// never re-resolved, so historical messages keep the name the sender had
// when they wrote.
type Message struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SessionID  string    `gorm:"index;size:36;not null" json:"sessionId"`
	Sender     Sender    `gorm:"not null" json:"sender"`
	SenderName string    `gorm:"not null" json:"senderName"`
	Text       string    `gorm:"not null" json:"text"`
	Read       bool      `gorm:"default:false" json:"read"`
	Timestamp  time.Time `gorm:"index" json:"timestamp"`
}
