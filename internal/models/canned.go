package models

import "time"

// CannedResponse is a pre-written reply admins can insert into a chat
type CannedResponse struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"not null" json:"title"`
	Text      string    `gorm:"not null" json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
