package models_test

import (
	"fidha/backend/internal/models"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// TestUserBeforeCreate_GeneratesUUID verifies that the BeforeCreate hook generates a valid UUID.
func TestUserBeforeCreate_GeneratesUUID(t *testing.T) {
	// Arrange
	user := &models.User{
		Name:        "Sarah",
		AnonymousID: "anon_123",
		IsOnline:    true,
	}

	assert.Empty(t, user.ID, "User ID should be empty before BeforeCreate")

	// Act - GORM would call this automatically
	err := user.BeforeCreate(nil)

	// Assert
	assert.NoError(t, err, "BeforeCreate should not return an error")
	assert.NotEmpty(t, user.ID, "User ID must be populated after BeforeCreate")

	parsedUUID, parseErr := uuid.Parse(user.ID)
	assert.NoError(t, parseErr, "User ID must be a valid UUID string")
	assert.NotEqual(t, uuid.Nil, parsedUUID, "Generated UUID should not be nil UUID")
}

// TestUserBeforeCreate_PreservesExistingID verifies that the hook doesn't overwrite an existing ID.
func TestUserBeforeCreate_PreservesExistingID(t *testing.T) {
	// Arrange
	user := &models.User{ID: "user1", Name: "Sarah"}

	// Act
	err := user.BeforeCreate(nil)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, "user1", user.ID, "BeforeCreate should preserve existing ID")
}

// TestUserBeforeCreate_MultipleUsers verifies unique UUIDs are generated for multiple users.
func TestUserBeforeCreate_MultipleUsers(t *testing.T) {
	// Arrange
	users := []*models.User{
		{Name: "Alex"},
		{Name: "Sam"},
		{Name: "Jordan"},
	}
	generatedIDs := make(map[string]bool)

	// Act
	for _, user := range users {
		err := user.BeforeCreate(nil)
		assert.NoError(t, err)

		assert.NotContains(t, generatedIDs, user.ID, "Each user should have a unique ID")
		generatedIDs[user.ID] = true
	}

	// Assert
	assert.Equal(t, len(users), len(generatedIDs), "All generated IDs should be unique")
}

// TestUserStructTags verifies that struct tags are correctly defined for GORM and JSON.
func TestUserStructTags(t *testing.T) {
	userType := reflect.TypeOf(models.User{})

	idField, found := userType.FieldByName("ID")
	assert.True(t, found, "ID field should exist")
	assert.Contains(t, idField.Tag.Get("gorm"), "primaryKey", "ID should be marked as primary key")
	assert.Equal(t, "id", idField.Tag.Get("json"))

	anonField, found := userType.FieldByName("AnonymousID")
	assert.True(t, found, "AnonymousID field should exist")
	assert.Contains(t, anonField.Tag.Get("gorm"), "uniqueIndex", "AnonymousID should have unique index")

	onlineField, found := userType.FieldByName("IsOnline")
	assert.True(t, found, "IsOnline field should exist")
	assert.Contains(t, onlineField.Tag.Get("gorm"), "index", "IsOnline is filtered on by nearby scans")
}

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{name: "nil input", in: nil, want: []string{}},
		{name: "trims and lowercases", in: []string{"  Jeans ", "WALKING"}, want: []string{"jeans", "walking"}},
		{name: "drops duplicates", in: []string{"hat", "Hat", "hat "}, want: []string{"hat"}},
		{name: "drops empty entries", in: []string{"", "   ", "scarf"}, want: []string{"scarf"}},
		{name: "sorts", in: []string{"dress", "boots", "coat"}, want: []string{"boots", "coat", "dress"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := models.NormalizeTags(tt.in)
			assert.NotNil(t, got, "normalized tags are never nil")
			assert.Equal(t, tt.want, []string(got))
		})
	}
}

func TestOutfitDescriptionComplements(t *testing.T) {
	aboutB := &models.OutfitDescription{UserID: "a", TargetUserID: "b"}
	aboutA := &models.OutfitDescription{UserID: "b", TargetUserID: "a"}
	aboutC := &models.OutfitDescription{UserID: "b", TargetUserID: "c"}

	assert.True(t, aboutB.Complements(aboutA))
	assert.True(t, aboutA.Complements(aboutB))
	assert.False(t, aboutB.Complements(aboutC))
	assert.False(t, aboutB.Complements(aboutB), "a description never complements itself")
}

func TestPairKeyIsOrderIndependent(t *testing.T) {
	assert.Equal(t, models.PairKey("alice", "bob"), models.PairKey("bob", "alice"))
	assert.NotEqual(t, models.PairKey("alice", "bob"), models.PairKey("alice", "carol"))
}

func TestChatOtherUser(t *testing.T) {
	chat := &models.Chat{User1ID: "a", User2ID: "b"}

	other, ok := chat.OtherUser("a")
	assert.True(t, ok)
	assert.Equal(t, "b", other)

	other, ok = chat.OtherUser("b")
	assert.True(t, ok)
	assert.Equal(t, "a", other)

	_, ok = chat.OtherUser("c")
	assert.False(t, ok)
	assert.False(t, chat.HasUser("c"))
}

func TestChatLastMessage(t *testing.T) {
	chat := &models.Chat{ID: "chat1"}

	_, ok := chat.LastMessage()
	assert.False(t, ok, "a chat without messages has no cached last message")

	chat.SetLastMessage(models.ChatMessage{ID: 7, ChatID: "chat1", SenderID: "a", Content: "hi"})
	last, ok := chat.LastMessage()
	assert.True(t, ok)
	assert.Equal(t, uint(7), last.ID)
	assert.Equal(t, "hi", last.Content)
	assert.Equal(t, "a", last.SenderID)
}

// BenchmarkUserBeforeCreate measures UUID generation performance.
func BenchmarkUserBeforeCreate(b *testing.B) {
	user := &models.User{Name: "benchmark_user"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		user.ID = ""
		_ = user.BeforeCreate(nil)
	}
}
