package storage

import (
	"context"
	"errors"
	"fidha/backend/internal/config"
	"fidha/backend/internal/models"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

// forEachStore runs the same contract against the in-memory store and an
// in-memory SQLite database.
func forEachStore(t *testing.T, fn func(t *testing.T, s Storage)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryStore())
	})
	t.Run("sqlite", func(t *testing.T) {
		db, err := Open(config.BackendSQLite, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
		require.NoError(t, err)
		svc := NewStorageService(db)
		require.NoError(t, svc.AutoMigrate())
		t.Cleanup(func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		})
		fn(t, svc)
	})
}

func saveUser(t *testing.T, s Storage, id string, online bool, seen time.Time) {
	t.Helper()
	require.NoError(t, s.SaveUser(context.Background(), &models.User{
		ID:          id,
		Name:        "name-" + id,
		AnonymousID: "anon_" + id,
		IsOnline:    online,
		LastSeen:    seen,
		CreatedAt:   base,
	}))
}

func saveDescription(t *testing.T, s Storage, from, to string, at time.Time) *models.OutfitDescription {
	t.Helper()
	desc := &models.OutfitDescription{
		UserID:       from,
		TargetUserID: to,
		Clothing:     models.NormalizeTags([]string{"Blue Jacket"}),
		Accessories:  models.NormalizeTags(nil),
		Activity:     models.NormalizeTags([]string{"reading"}),
		CreatedAt:    at,
	}
	require.NoError(t, s.SaveDescription(context.Background(), desc))
	return desc
}

func createMatch(t *testing.T, s Storage, d1, d2 *models.OutfitDescription, at time.Time) (*models.Match, *models.Chat) {
	t.Helper()
	match := &models.Match{
		User1ID:            d1.UserID,
		User2ID:            d2.UserID,
		User1DescriptionID: d1.ID,
		User2DescriptionID: d2.ID,
		Status:             models.MatchStatusMatched,
		CreatedAt:          at,
	}
	chat := &models.Chat{CreatedAt: at}
	first := &models.ChatMessage{SenderID: models.SystemSenderID, Content: "hello", SentAt: at}
	require.NoError(t, s.CreateMatch(context.Background(), match, chat, first))
	return match, chat
}

func TestUsers(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Storage) {
		ctx := context.Background()
		saveUser(t, s, "user1", true, base)
		saveUser(t, s, "user2", true, base.Add(time.Minute))
		saveUser(t, s, "user3", false, base.Add(2*time.Minute))
		saveUser(t, s, "user4", true, base)

		got, err := s.GetUserByID(ctx, "user2")
		require.NoError(t, err)
		assert.Equal(t, "name-user2", got.Name)
		assert.Equal(t, "anon_user2", got.AnonymousID)

		_, err = s.GetUserByID(ctx, "ghost")
		assert.True(t, errors.Is(err, ErrNotFound))

		online, err := s.ListOnlineUsers(ctx, "user1", 0)
		require.NoError(t, err)
		require.Len(t, online, 2)
		assert.Equal(t, "user2", online[0].ID)
		assert.Equal(t, "user4", online[1].ID)

		limited, err := s.ListOnlineUsers(ctx, "", 2)
		require.NoError(t, err)
		require.Len(t, limited, 2)
		assert.Equal(t, "user2", limited[0].ID)
		assert.Equal(t, "user1", limited[1].ID)
	})
}

func TestPresence(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Storage) {
		ctx := context.Background()
		saveUser(t, s, "user1", true, base)
		saveUser(t, s, "user2", true, base.Add(10*time.Minute))

		require.NoError(t, s.SetUserPresence(ctx, "user1", false, base.Add(time.Minute)))
		got, err := s.GetUserByID(ctx, "user1")
		require.NoError(t, err)
		assert.False(t, got.IsOnline)
		assert.WithinDuration(t, base.Add(time.Minute), got.LastSeen, time.Millisecond)

		err = s.SetUserPresence(ctx, "ghost", true, base)
		assert.True(t, errors.Is(err, ErrNotFound))

		require.NoError(t, s.SetUserPresence(ctx, "user1", true, base))
		changed, err := s.MarkStaleUsersOffline(ctx, base.Add(5*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, int64(1), changed)

		online, err := s.ListOnlineUsers(ctx, "", 0)
		require.NoError(t, err)
		require.Len(t, online, 1)
		assert.Equal(t, "user2", online[0].ID)
	})
}

func TestMarkStaleUsersOffline_SkipsDemoUsers(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Storage) {
		ctx := context.Background()
		require.NoError(t, s.SaveUser(ctx, &models.User{
			ID: "demo", Name: "Sarah", AnonymousID: "anon_demo",
			IsOnline: true, IsDemo: true, LastSeen: base, CreatedAt: base,
		}))
		saveUser(t, s, "stale", true, base)

		changed, err := s.MarkStaleUsersOffline(ctx, base.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), changed)

		demo, err := s.GetUserByID(ctx, "demo")
		require.NoError(t, err)
		assert.True(t, demo.IsOnline)
		assert.True(t, demo.IsDemo)
	})
}

func TestDescriptions(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Storage) {
		ctx := context.Background()
		first := saveDescription(t, s, "user1", "user2", base)
		saveDescription(t, s, "user1", "user2", base.Add(time.Minute))

		found, err := s.FindDescription(ctx, "user1", "user2")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, first.ID, found.ID)
		assert.Equal(t, []string{"blue jacket"}, []string(found.Clothing))
		assert.Empty(t, found.Accessories)

		missing, err := s.FindDescription(ctx, "user2", "user1")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})
}

func TestCreateMatch(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Storage) {
		ctx := context.Background()
		d1 := saveDescription(t, s, "user1", "user2", base)
		d2 := saveDescription(t, s, "user2", "user1", base.Add(time.Second))
		match, chat := createMatch(t, s, d2, d1, base.Add(time.Second))

		assert.NotEmpty(t, match.ID)
		assert.Equal(t, chat.ID, match.ChatID)
		assert.Equal(t, match.ID, chat.MatchID)

		found, err := s.FindMatchBetween(ctx, "user1", "user2")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, match.ID, found.ID)
		assert.Equal(t, models.MatchStatusMatched, found.Status)

		none, err := s.FindMatchBetween(ctx, "user1", "user3")
		require.NoError(t, err)
		assert.Nil(t, none)

		messages, err := s.GetMessages(ctx, chat.ID)
		require.NoError(t, err)
		require.Len(t, messages, 1)
		assert.True(t, messages[0].IsSystem())

		stored, err := s.GetChatByID(ctx, chat.ID)
		require.NoError(t, err)
		last, ok := stored.LastMessage()
		require.True(t, ok)
		assert.Equal(t, "hello", last.Content)

		d3 := saveDescription(t, s, "user1", "user2", base.Add(time.Minute))
		err = s.CreateMatch(ctx,
			&models.Match{User1ID: "user1", User2ID: "user2", User1DescriptionID: d3.ID, User2DescriptionID: d2.ID, Status: models.MatchStatusMatched},
			&models.Chat{},
			&models.ChatMessage{SenderID: models.SystemSenderID, Content: "again", SentAt: base.Add(time.Minute)},
		)
		assert.True(t, errors.Is(err, ErrDuplicateMatch))

		list, err := s.ListMatchesForUser(ctx, "user1")
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}

func TestMatchStatus(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Storage) {
		ctx := context.Background()
		d1 := saveDescription(t, s, "user1", "user2", base)
		d2 := saveDescription(t, s, "user2", "user1", base)
		match, _ := createMatch(t, s, d2, d1, base)

		require.NoError(t, s.UpdateMatchStatus(ctx, match.ID, models.MatchStatusExpired))
		got, err := s.GetMatchByID(ctx, match.ID)
		require.NoError(t, err)
		assert.Equal(t, models.MatchStatusExpired, got.Status)

		// Same value again must not look like a missing row.
		require.NoError(t, s.UpdateMatchStatus(ctx, match.ID, models.MatchStatusExpired))

		err = s.UpdateMatchStatus(ctx, "ghost", models.MatchStatusExpired)
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}

func TestMessagesAndChats(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Storage) {
		ctx := context.Background()
		d1 := saveDescription(t, s, "user1", "user2", base)
		d2 := saveDescription(t, s, "user2", "user1", base)
		_, older := createMatch(t, s, d2, d1, base)

		d3 := saveDescription(t, s, "user1", "user3", base)
		d4 := saveDescription(t, s, "user3", "user1", base)
		_, newer := createMatch(t, s, d4, d3, base.Add(time.Minute))

		chats, err := s.ListChatsForUser(ctx, "user1")
		require.NoError(t, err)
		require.Len(t, chats, 2)
		assert.Equal(t, newer.ID, chats[0].ID)

		// Two messages with the same timestamp keep append order.
		same := base.Add(2 * time.Minute)
		a := &models.ChatMessage{ChatID: older.ID, SenderID: "user1", Content: "a", SentAt: same}
		b := &models.ChatMessage{ChatID: older.ID, SenderID: "user2", Content: "b", SentAt: same}
		require.NoError(t, s.AppendMessage(ctx, a))
		require.NoError(t, s.AppendMessage(ctx, b))
		assert.Greater(t, b.ID, a.ID)

		messages, err := s.GetMessages(ctx, older.ID)
		require.NoError(t, err)
		require.Len(t, messages, 3)
		assert.Equal(t, "a", messages[1].Content)
		assert.Equal(t, "b", messages[2].Content)

		chats, err = s.ListChatsForUser(ctx, "user1")
		require.NoError(t, err)
		assert.Equal(t, older.ID, chats[0].ID)
		last, ok := chats[0].LastMessage()
		require.True(t, ok)
		assert.Equal(t, "b", last.Content)

		err = s.AppendMessage(ctx, &models.ChatMessage{ChatID: "ghost", SenderID: "user1", Content: "x", SentAt: same})
		assert.True(t, errors.Is(err, ErrNotFound))

		empty, err := s.GetMessages(ctx, "ghost")
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)
	})
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	_, err := Open("oracle", "")
	assert.Error(t, err)
}

func TestNewDefaultsToMemory(t *testing.T) {
	s, err := New(&config.Config{StorageBackend: config.BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)
}
