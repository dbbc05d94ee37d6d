package models

import "time"

// Conversation is the history-list projection of a chat for one user.
// It is derived on every query and never stored.
type Conversation struct {
	ChatID          string    `json:"id"`
	PersonName      string    `json:"person_name"`
	LastMessage     string    `json:"last_message"`
	LastMessageTime time.Time `json:"last_message_time"`
	IsActive        bool      `json:"is_active"`
}
