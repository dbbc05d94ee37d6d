package storage

import (
	"context"
	"fidha/backend/internal/models"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps everything in process memory. It is the default backend
// for demos and tests; all reads return copies.
type MemoryStore struct {
	mu sync.RWMutex

	users        map[string]models.User
	descriptions []models.OutfitDescription
	matches      map[string]models.Match
	pairs        map[string]string // pair key -> match id
	chats        map[string]models.Chat
	messages     map[string][]models.ChatMessage

	nextMessageID uint
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]models.User),
		matches:  make(map[string]models.Match),
		pairs:    make(map[string]string),
		chats:    make(map[string]models.Chat),
		messages: make(map[string][]models.ChatMessage),
	}
}

func (m *MemoryStore) SaveUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.ID == "" {
		if err := user.BeforeCreate(nil); err != nil {
			return err
		}
	}
	if existing, ok := m.users[user.ID]; ok && user.CreatedAt.IsZero() {
		user.CreatedAt = existing.CreatedAt
	}
	m.users[user.ID] = *user
	return nil
}

func (m *MemoryStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return &user, nil
}

func (m *MemoryStore) ListOnlineUsers(ctx context.Context, excludeID string, limit int) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	users := []models.User{}
	for _, u := range m.users {
		if u.IsOnline && u.ID != excludeID {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool {
		if !users[i].LastSeen.Equal(users[j].LastSeen) {
			return users[i].LastSeen.After(users[j].LastSeen)
		}
		return users[i].ID < users[j].ID
	})
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (m *MemoryStore) SetUserPresence(ctx context.Context, id string, online bool, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	user.IsOnline = online
	user.LastSeen = at
	m.users[id] = user
	return nil
}

func (m *MemoryStore) MarkStaleUsersOffline(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var changed int64
	for id, u := range m.users {
		if u.IsOnline && !u.IsDemo && u.LastSeen.Before(before) {
			u.IsOnline = false
			m.users[id] = u
			changed++
		}
	}
	return changed, nil
}

func (m *MemoryStore) SaveDescription(ctx context.Context, desc *models.OutfitDescription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := desc.BeforeCreate(nil); err != nil {
		return err
	}
	m.descriptions = append(m.descriptions, *desc)
	return nil
}

// FindDescription relies on descriptions being appended in creation order.
func (m *MemoryStore) FindDescription(ctx context.Context, submitterID, targetID string) (*models.OutfitDescription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.descriptions {
		if d.UserID == submitterID && d.TargetUserID == targetID {
			found := d
			return &found, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) CreateMatch(ctx context.Context, match *models.Match, chat *models.Chat, first *models.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pairs[models.PairKey(match.User1ID, match.User2ID)]; ok {
		return ErrDuplicateMatch
	}
	linkMatch(match, chat, first)

	m.nextMessageID++
	first.ID = m.nextMessageID
	chat.SetLastMessage(*first)

	m.matches[match.ID] = *match
	m.pairs[match.PairKey] = match.ID
	m.chats[chat.ID] = *chat
	m.messages[chat.ID] = []models.ChatMessage{*first}
	return nil
}

func (m *MemoryStore) FindMatchBetween(ctx context.Context, userA, userB string) (*models.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.pairs[models.PairKey(userA, userB)]
	if !ok {
		return nil, nil
	}
	match := m.matches[id]
	return &match, nil
}

func (m *MemoryStore) GetMatchByID(ctx context.Context, id string) (*models.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	match, ok := m.matches[id]
	if !ok {
		return nil, fmt.Errorf("match %s: %w", id, ErrNotFound)
	}
	return &match, nil
}

func (m *MemoryStore) ListMatchesForUser(ctx context.Context, userID string) ([]models.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matches := []models.Match{}
	for _, match := range m.matches {
		if match.HasUser(userID) {
			matches = append(matches, match)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		}
		return matches[i].ID < matches[j].ID
	})
	return matches, nil
}

func (m *MemoryStore) UpdateMatchStatus(ctx context.Context, id string, status models.MatchStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	match, ok := m.matches[id]
	if !ok {
		return fmt.Errorf("match %s: %w", id, ErrNotFound)
	}
	match.Status = status
	m.matches[id] = match
	return nil
}

func (m *MemoryStore) GetChatByID(ctx context.Context, id string) (*models.Chat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	chat, ok := m.chats[id]
	if !ok {
		return nil, fmt.Errorf("chat %s: %w", id, ErrNotFound)
	}
	return &chat, nil
}

func (m *MemoryStore) ListChatsForUser(ctx context.Context, userID string) ([]models.Chat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	chats := []models.Chat{}
	for _, chat := range m.chats {
		if chat.HasUser(userID) {
			chats = append(chats, chat)
		}
	}
	sort.Slice(chats, func(i, j int) bool {
		if !chats[i].LastMessageAt.Equal(chats[j].LastMessageAt) {
			return chats[i].LastMessageAt.After(chats[j].LastMessageAt)
		}
		return chats[i].ID < chats[j].ID
	})
	return chats, nil
}

func (m *MemoryStore) AppendMessage(ctx context.Context, msg *models.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	chat, ok := m.chats[msg.ChatID]
	if !ok {
		return fmt.Errorf("chat %s: %w", msg.ChatID, ErrNotFound)
	}
	m.nextMessageID++
	msg.ID = m.nextMessageID
	m.messages[msg.ChatID] = append(m.messages[msg.ChatID], *msg)
	chat.SetLastMessage(*msg)
	m.chats[chat.ID] = chat
	return nil
}

func (m *MemoryStore) GetMessages(ctx context.Context, chatID string) ([]models.ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored := m.messages[chatID]
	messages := make([]models.ChatMessage, len(stored))
	copy(messages, stored)
	sort.SliceStable(messages, func(i, j int) bool {
		if !messages[i].SentAt.Equal(messages[j].SentAt) {
			return messages[i].SentAt.Before(messages[j].SentAt)
		}
		return messages[i].ID < messages[j].ID
	})
	return messages, nil
}
