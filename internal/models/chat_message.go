package models

import "time"

// ChatMessage is a single entry of a chat. IDs are assigned by the store in
// append order and break ties between equal timestamps.
type ChatMessage struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	ChatID   string    `gorm:"type:varchar(64);not null;index:idx_chat_msg" json:"chat_id"`
	SenderID string    `gorm:"not null" json:"sender_id"`
	Content  string    `gorm:"type:text;not null" json:"content"`
	SentAt   time.Time `gorm:"not null;index:idx_chat_msg" json:"timestamp"`
	IsRead   bool      `json:"is_read"`
}

// IsSystem reports whether the message was authored by the service.
func (m *ChatMessage) IsSystem() bool {
	return m.SenderID == SystemSenderID
}
