package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SystemSenderID marks messages authored by the service rather than a user.
const SystemSenderID = "system"

// Chat is the conversation unlocked by a Match. Messages live in their own
// table; the chat caches a copy of the most recent one.
type Chat struct {
	ID      string `gorm:"primaryKey" json:"id"`
	MatchID string `gorm:"uniqueIndex;not null" json:"match_id"`
	User1ID string `gorm:"not null;index" json:"user1_id"`
	User2ID string `gorm:"not null;index" json:"user2_id"`

	LastMessageID       uint      `json:"-"`
	LastMessageContent  string    `gorm:"type:text" json:"-"`
	LastMessageSenderID string    `json:"-"`
	LastMessageAt       time.Time `gorm:"index" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate assigns a UUID when the ID is still empty.
func (c *Chat) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return
}

// HasUser reports whether userID takes part in the chat.
func (c *Chat) HasUser(userID string) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// OtherUser returns the participant that is not userID.
func (c *Chat) OtherUser(userID string) (string, bool) {
	switch userID {
	case c.User1ID:
		return c.User2ID, true
	case c.User2ID:
		return c.User1ID, true
	}
	return "", false
}

// LastMessage returns the cached most recent message, if any.
func (c *Chat) LastMessage() (ChatMessage, bool) {
	if c.LastMessageID == 0 {
		return ChatMessage{}, false
	}
	return ChatMessage{
		ID:       c.LastMessageID,
		ChatID:   c.ID,
		SenderID: c.LastMessageSenderID,
		Content:  c.LastMessageContent,
		SentAt:   c.LastMessageAt,
	}, true
}

// SetLastMessage refreshes the cached copy of the most recent message.
func (c *Chat) SetLastMessage(msg ChatMessage) {
	c.LastMessageID = msg.ID
	c.LastMessageContent = msg.Content
	c.LastMessageSenderID = msg.SenderID
	c.LastMessageAt = msg.SentAt
}
