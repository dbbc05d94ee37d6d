package chathub_test

import (
	"context"
	"fidha/backend/internal/models"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockStorage is a testify/mock implementation of storage.Storage for
// exercising failure paths.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) SaveUser(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockStorage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStorage) ListOnlineUsers(ctx context.Context, excludeID string, limit int) ([]models.User, error) {
	args := m.Called(ctx, excludeID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockStorage) SetUserPresence(ctx context.Context, id string, online bool, at time.Time) error {
	return m.Called(ctx, id, online, at).Error(0)
}

func (m *MockStorage) MarkStaleUsersOffline(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) SaveDescription(ctx context.Context, desc *models.OutfitDescription) error {
	return m.Called(ctx, desc).Error(0)
}

func (m *MockStorage) FindDescription(ctx context.Context, submitterID, targetID string) (*models.OutfitDescription, error) {
	args := m.Called(ctx, submitterID, targetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OutfitDescription), args.Error(1)
}

func (m *MockStorage) CreateMatch(ctx context.Context, match *models.Match, chat *models.Chat, first *models.ChatMessage) error {
	return m.Called(ctx, match, chat, first).Error(0)
}

func (m *MockStorage) FindMatchBetween(ctx context.Context, userA, userB string) (*models.Match, error) {
	args := m.Called(ctx, userA, userB)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Match), args.Error(1)
}

func (m *MockStorage) GetMatchByID(ctx context.Context, id string) (*models.Match, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Match), args.Error(1)
}

func (m *MockStorage) ListMatchesForUser(ctx context.Context, userID string) ([]models.Match, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Match), args.Error(1)
}

func (m *MockStorage) UpdateMatchStatus(ctx context.Context, id string, status models.MatchStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockStorage) GetChatByID(ctx context.Context, id string) (*models.Chat, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Chat), args.Error(1)
}

func (m *MockStorage) ListChatsForUser(ctx context.Context, userID string) ([]models.Chat, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Chat), args.Error(1)
}

func (m *MockStorage) AppendMessage(ctx context.Context, msg *models.ChatMessage) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *MockStorage) GetMessages(ctx context.Context, chatID string) ([]models.ChatMessage, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ChatMessage), args.Error(1)
}

// MockClient records the snapshots the hub pushes to it.
type MockClient struct {
	userID      string
	chatID      string
	RecvChannel chan models.ChatSnapshot

	mu     sync.Mutex
	closed bool
}

func newMockClient(userID, chatID string, buffer int) *MockClient {
	return &MockClient{
		userID:      userID,
		chatID:      chatID,
		RecvChannel: make(chan models.ChatSnapshot, buffer),
	}
}

func (c *MockClient) GetUserID() string                          { return c.userID }
func (c *MockClient) GetChatID() string                          { return c.chatID }
func (c *MockClient) GetSendChannel() chan<- models.ChatSnapshot { return c.RecvChannel }
func (c *MockClient) Run()                                       {}

func (c *MockClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *MockClient) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
