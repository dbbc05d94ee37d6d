package storage

import (
	"context"
	"errors"
	"fidha/backend/internal/models"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrNotFound is returned when a user, match or chat does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateMatch is returned when the pair of users already has a match.
	ErrDuplicateMatch = errors.New("match already exists for this pair")
)

// Storage is the repository every service works against. Both MemoryStore and
// the gorm-backed Service implement it and are held to the same contract.
type Storage interface {
	SaveUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	// ListOnlineUsers returns online users except excludeID, most recently
	// seen first. A limit <= 0 means no limit.
	ListOnlineUsers(ctx context.Context, excludeID string, limit int) ([]models.User, error)
	SetUserPresence(ctx context.Context, id string, online bool, at time.Time) error
	// MarkStaleUsersOffline skips demo users.
	MarkStaleUsersOffline(ctx context.Context, before time.Time) (int64, error)

	SaveDescription(ctx context.Context, desc *models.OutfitDescription) error
	// FindDescription returns the earliest description written by submitterID
	// about targetID, or nil when there is none.
	FindDescription(ctx context.Context, submitterID, targetID string) (*models.OutfitDescription, error)

	// CreateMatch stores the match, its chat and the chat's first message in
	// one step. It fails with ErrDuplicateMatch if the pair already matched.
	CreateMatch(ctx context.Context, match *models.Match, chat *models.Chat, first *models.ChatMessage) error
	// FindMatchBetween returns the match of the two users in either order, or nil.
	FindMatchBetween(ctx context.Context, userA, userB string) (*models.Match, error)
	GetMatchByID(ctx context.Context, id string) (*models.Match, error)
	ListMatchesForUser(ctx context.Context, userID string) ([]models.Match, error)
	UpdateMatchStatus(ctx context.Context, id string, status models.MatchStatus) error

	GetChatByID(ctx context.Context, id string) (*models.Chat, error)
	// ListChatsForUser returns the user's chats, most recent activity first.
	ListChatsForUser(ctx context.Context, userID string) ([]models.Chat, error)
	// AppendMessage assigns the message ID and refreshes the chat's cached
	// last message.
	AppendMessage(ctx context.Context, msg *models.ChatMessage) error
	// GetMessages returns the chat's messages oldest first. Unknown chats
	// yield an empty list.
	GetMessages(ctx context.Context, chatID string) ([]models.ChatMessage, error)
}

// Service реалізує Storage поверх GORM (Postgres, MySQL або SQLite).
type Service struct {
	DB *gorm.DB
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

// AutoMigrate створює або оновлює всі таблиці сервісу.
func (s *Service) AutoMigrate() error {
	return s.DB.AutoMigrate(
		&models.User{},
		&models.OutfitDescription{},
		&models.Match{},
		&models.Chat{},
		&models.ChatMessage{},
	)
}

func notFound(err error, what, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return err
}

// SaveUser зберігає користувача (insert або update).
func (s *Service) SaveUser(ctx context.Context, user *models.User) error {
	return s.DB.WithContext(ctx).Save(user).Error
}

// GetUserByID знаходить користувача за ID.
func (s *Service) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err, "user", id)
	}
	return &user, nil
}

func (s *Service) ListOnlineUsers(ctx context.Context, excludeID string, limit int) ([]models.User, error) {
	var users []models.User
	q := s.DB.WithContext(ctx).
		Where("is_online = ?", true).
		Where("id <> ?", excludeID).
		Order("last_seen desc, id asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Service) SetUserPresence(ctx context.Context, id string, online bool, at time.Time) error {
	result := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_online": online,
			"last_seen": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return s.ensureExists(ctx, &models.User{}, "user", id)
	}
	return nil
}

// MarkStaleUsersOffline переводить в офлайн користувачів, яких не було з моменту
// before, і повертає їх кількість. Demo users are skipped.
func (s *Service) MarkStaleUsersOffline(ctx context.Context, before time.Time) (int64, error) {
	result := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("is_online = ? AND is_demo = ? AND last_seen < ?", true, false, before).
		Update("is_online", false)
	return result.RowsAffected, result.Error
}

// SaveDescription зберігає опис зовнішності.
func (s *Service) SaveDescription(ctx context.Context, desc *models.OutfitDescription) error {
	return s.DB.WithContext(ctx).Create(desc).Error
}

func (s *Service) FindDescription(ctx context.Context, submitterID, targetID string) (*models.OutfitDescription, error) {
	var found []models.OutfitDescription
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND target_user_id = ?", submitterID, targetID).
		Order("created_at asc, id asc").
		Limit(1).
		Find(&found).Error
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

// CreateMatch зберігає збіг, чат і перше повідомлення в одній транзакції.
func (s *Service) CreateMatch(ctx context.Context, match *models.Match, chat *models.Chat, first *models.ChatMessage) error {
	linkMatch(match, chat, first)
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. Збіг; унікальний pair_key відсікає дублікати
		if err := tx.Omit(clause.Associations).Create(match).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateMatch
			}
			return err
		}
		// 2. Чат і системне повідомлення
		if err := tx.Create(chat).Error; err != nil {
			return err
		}
		if err := tx.Create(first).Error; err != nil {
			return err
		}
		// 3. first.ID відомий лише після вставки, оновлюємо кеш чату
		chat.SetLastMessage(*first)
		return tx.Model(chat).Select(
			"last_message_id", "last_message_content", "last_message_sender_id", "last_message_at",
		).Updates(chat).Error
	})
}

func (s *Service) matchQuery(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx).
		Preload("User1Description").
		Preload("User2Description")
}

func (s *Service) FindMatchBetween(ctx context.Context, userA, userB string) (*models.Match, error) {
	var found []models.Match
	err := s.matchQuery(ctx).
		Where("pair_key = ?", models.PairKey(userA, userB)).
		Limit(1).
		Find(&found).Error
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

func (s *Service) GetMatchByID(ctx context.Context, id string) (*models.Match, error) {
	var match models.Match
	if err := s.matchQuery(ctx).Where("id = ?", id).First(&match).Error; err != nil {
		return nil, notFound(err, "match", id)
	}
	return &match, nil
}

func (s *Service) ListMatchesForUser(ctx context.Context, userID string) ([]models.Match, error) {
	var matches []models.Match
	err := s.matchQuery(ctx).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Order("created_at desc, id asc").
		Find(&matches).Error
	if err != nil {
		return nil, err
	}
	return matches, nil
}

func (s *Service) UpdateMatchStatus(ctx context.Context, id string, status models.MatchStatus) error {
	result := s.DB.WithContext(ctx).Model(&models.Match{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return s.ensureExists(ctx, &models.Match{}, "match", id)
	}
	return nil
}

func (s *Service) GetChatByID(ctx context.Context, id string) (*models.Chat, error) {
	var chat models.Chat
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&chat).Error; err != nil {
		return nil, notFound(err, "chat", id)
	}
	return &chat, nil
}

func (s *Service) ListChatsForUser(ctx context.Context, userID string) ([]models.Chat, error) {
	var chats []models.Chat
	err := s.DB.WithContext(ctx).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Order("last_message_at desc, id asc").
		Find(&chats).Error
	if err != nil {
		return nil, err
	}
	return chats, nil
}

// AppendMessage зберігає повідомлення та оновлює останнє повідомлення чату.
func (s *Service) AppendMessage(ctx context.Context, msg *models.ChatMessage) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var chat models.Chat
		if err := tx.Where("id = ?", msg.ChatID).First(&chat).Error; err != nil {
			return notFound(err, "chat", msg.ChatID)
		}
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		chat.SetLastMessage(*msg)
		return tx.Model(&chat).Select(
			"last_message_id", "last_message_content", "last_message_sender_id", "last_message_at",
		).Updates(&chat).Error
	})
}

// GetMessages отримує історію повідомлень чату, сортуючи за часом відправлення.
func (s *Service) GetMessages(ctx context.Context, chatID string) ([]models.ChatMessage, error) {
	messages := []models.ChatMessage{}
	err := s.DB.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("sent_at asc, id asc").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// linkMatch assigns missing IDs and cross-references the match, its chat and
// the chat's first message before anything is written.
func linkMatch(match *models.Match, chat *models.Chat, first *models.ChatMessage) {
	if match.ID == "" {
		match.ID = uuid.New().String()
	}
	if chat.ID == "" {
		chat.ID = uuid.New().String()
	}
	match.PairKey = models.PairKey(match.User1ID, match.User2ID)
	match.ChatID = chat.ID
	chat.MatchID = match.ID
	chat.User1ID = match.User1ID
	chat.User2ID = match.User2ID
	if chat.CreatedAt.IsZero() {
		chat.CreatedAt = match.CreatedAt
	}
	first.ChatID = chat.ID
	chat.SetLastMessage(*first)
}

// ensureExists tells a no-op update (MySQL reports zero affected rows when
// nothing changed) apart from a missing row.
func (s *Service) ensureExists(ctx context.Context, model interface{}, what, id string) error {
	var count int64
	if err := s.DB.WithContext(ctx).Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return nil
}
