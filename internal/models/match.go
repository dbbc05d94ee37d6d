package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MatchStatus string

const (
	// MatchStatusMatched is set when the complementary description is found.
	MatchStatusMatched MatchStatus = "matched"
	// MatchStatusExpired closes the match's chat for new messages.
	MatchStatusExpired MatchStatus = "expired"
)

// Match is a confirmed mutual-noticing event between two users.
// User1 is the user whose submission completed the pair.
type Match struct {
	ID      string `gorm:"primaryKey" json:"id"`
	User1ID string `gorm:"not null;index" json:"user1_id"`
	User2ID string `gorm:"not null;index" json:"user2_id"`

	User1DescriptionID string            `gorm:"not null" json:"-"`
	User1Description   OutfitDescription `gorm:"foreignKey:User1DescriptionID" json:"user1_description"`
	User2DescriptionID string            `gorm:"not null" json:"-"`
	User2Description   OutfitDescription `gorm:"foreignKey:User2DescriptionID" json:"user2_description"`

	Status MatchStatus `gorm:"type:varchar(16);not null" json:"status"`
	ChatID string      `gorm:"index" json:"chat_id"`
	// PairKey is the order-independent key of the two users; at most one match
	// exists per key.
	PairKey   string    `gorm:"uniqueIndex;not null" json:"-"`
	CreatedAt time.Time `json:"timestamp"`
}

// BeforeCreate assigns a UUID when the ID is still empty.
func (m *Match) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return
}

// HasUser reports whether userID is one of the two matched users.
func (m *Match) HasUser(userID string) bool {
	return m.User1ID == userID || m.User2ID == userID
}

// PairKey builds the key shared by both orderings of the same two users.
func PairKey(userA, userB string) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return userA + ":" + userB
}
