package chathub

import (
	"context"
	"errors"
	"fidha/backend/internal/config"
	"fidha/backend/internal/localization"
	"fidha/backend/internal/models"
	"fidha/backend/internal/storage"
	"fmt"
	"log"
	"math/rand/v2"
	"sync"

	"github.com/jonboulle/clockwork"
	"gorm.io/datatypes"
)

// ErrSelfTarget is returned when a user submits a description of themselves.
var ErrSelfTarget = errors.New("cannot submit a description of yourself")

// SubmitRequest is the one-sided account of someone the caller noticed.
type SubmitRequest struct {
	TargetUserID string   `json:"target_user_id" binding:"required"`
	Clothing     []string `json:"clothing"`
	Accessories  []string `json:"accessories"`
	Activity     []string `json:"activity"`
}

// SubmitResult tells the caller whether their submission completed a pair.
type SubmitResult struct {
	Description *models.OutfitDescription
	Matched     bool
	Match       *models.Match
}

// MatcherService зберігає описи зовнішності та перетворює взаємні пари на збіги.
type MatcherService struct {
	Storage   storage.Storage
	Clock     clockwork.Clock
	Localizer *localization.Localizer
	Language  string

	// mu серіалізує подання, щоб два взаємні описи не створили два збіги.
	mu sync.Mutex
}

// NewMatcherService створює новий Matcher.
func NewMatcherService(s storage.Storage, clock clockwork.Clock, loc *localization.Localizer, lang string) *MatcherService {
	return &MatcherService{
		Storage:   s,
		Clock:     clock,
		Localizer: loc,
		Language:  lang,
	}
}

// Submit stores the description and checks whether the target has already
// described the submitter. If so, the pair is matched and a chat is opened.
func (m *MatcherService) Submit(ctx context.Context, currentUserID string, req SubmitRequest) (*SubmitResult, error) {
	if req.TargetUserID == currentUserID {
		return nil, ErrSelfTarget
	}
	if _, err := m.Storage.GetUserByID(ctx, req.TargetUserID); err != nil {
		return nil, fmt.Errorf("failed to resolve target: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// 1. Зберігаємо опис
	desc := &models.OutfitDescription{
		UserID:       currentUserID,
		TargetUserID: req.TargetUserID,
		Clothing:     models.NormalizeTags(req.Clothing),
		Accessories:  models.NormalizeTags(req.Accessories),
		Activity:     models.NormalizeTags(req.Activity),
		Location:     datatypes.NewJSONType(jitteredLocation()),
		CreatedAt:    m.Clock.Now().UTC(),
	}
	if err := m.Storage.SaveDescription(ctx, desc); err != nil {
		return nil, fmt.Errorf("failed to save description: %w", err)
	}

	// 2. Шукаємо зустрічний опис від цілі
	counterpart, err := m.Storage.FindDescription(ctx, req.TargetUserID, currentUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up counterpart description: %w", err)
	}
	if counterpart == nil {
		return &SubmitResult{Description: desc}, nil
	}

	// 3. Пара вже має збіг? Повертаємо його
	existing, err := m.Storage.FindMatchBetween(ctx, currentUserID, req.TargetUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up existing match: %w", err)
	}
	if existing != nil {
		return &SubmitResult{Description: desc, Matched: true, Match: existing}, nil
	}

	// 4. Створюємо збіг і чат
	match, err := m.createMatch(ctx, desc, counterpart)
	if errors.Is(err, storage.ErrDuplicateMatch) {
		// Інший інстанс встиг першим; повертаємо його збіг.
		match, err = m.Storage.FindMatchBetween(ctx, currentUserID, req.TargetUserID)
	}
	if err != nil {
		return nil, err
	}
	return &SubmitResult{Description: desc, Matched: true, Match: match}, nil
}

func (m *MatcherService) createMatch(ctx context.Context, desc, counterpart *models.OutfitDescription) (*models.Match, error) {
	now := m.Clock.Now().UTC()
	match := &models.Match{
		User1ID:            desc.UserID,
		User2ID:            counterpart.UserID,
		User1DescriptionID: desc.ID,
		User1Description:   *desc,
		User2DescriptionID: counterpart.ID,
		User2Description:   *counterpart,
		Status:             models.MatchStatusMatched,
		CreatedAt:          now,
	}
	chat := &models.Chat{CreatedAt: now}
	first := &models.ChatMessage{
		SenderID: models.SystemSenderID,
		Content:  m.Localizer.GetString(m.Language, "match_system_message"),
		SentAt:   now,
	}
	if err := m.Storage.CreateMatch(ctx, match, chat, first); err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}
	log.Printf("INFO: Match %s found between %s and %s (chat %s)", match.ID, match.User1ID, match.User2ID, match.ChatID)
	return match, nil
}

// ListMatches returns the user's matches, newest first.
func (m *MatcherService) ListMatches(ctx context.Context, userID string) ([]models.Match, error) {
	return m.Storage.ListMatchesForUser(ctx, userID)
}

// ExpireMatch closes a match; its chat stops accepting messages.
func (m *MatcherService) ExpireMatch(ctx context.Context, matchID string) error {
	if err := m.Storage.UpdateMatchStatus(ctx, matchID, models.MatchStatusExpired); err != nil {
		return fmt.Errorf("failed to expire match: %w", err)
	}
	log.Printf("INFO: Match %s expired", matchID)
	return nil
}

func jitteredLocation() models.Location {
	return models.Location{
		Latitude:  config.BaseLatitude + (rand.Float64()-0.5)*config.LocationJitter,
		Longitude: config.BaseLongitude + (rand.Float64()-0.5)*config.LocationJitter,
	}
}
