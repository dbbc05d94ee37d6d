package chathub

import (
	"context"
	"errors"
	"fidha/backend/internal/localization"
	"fidha/backend/internal/models"
	"fidha/backend/internal/storage"
	"fmt"
	"sort"
)

// ConversationService derives the history list shown to a user. Nothing it
// returns is stored.
type ConversationService struct {
	Storage   storage.Storage
	Localizer *localization.Localizer
	Language  string
}

func NewConversationService(s storage.Storage, loc *localization.Localizer, lang string) *ConversationService {
	return &ConversationService{Storage: s, Localizer: loc, Language: lang}
}

// ListConversations summarizes every chat the user takes part in, most
// recent activity first.
func (c *ConversationService) ListConversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	chats, err := c.Storage.ListChatsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}

	conversations := make([]models.Conversation, 0, len(chats))
	for i := range chats {
		conv, err := c.summarize(ctx, &chats[i], userID)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, conv)
	}

	sort.SliceStable(conversations, func(i, j int) bool {
		a, b := conversations[i], conversations[j]
		if !a.LastMessageTime.Equal(b.LastMessageTime) {
			return a.LastMessageTime.After(b.LastMessageTime)
		}
		return a.ChatID < b.ChatID
	})
	return conversations, nil
}

func (c *ConversationService) summarize(ctx context.Context, chat *models.Chat, userID string) (models.Conversation, error) {
	conv := models.Conversation{
		ChatID:     chat.ID,
		PersonName: c.Localizer.GetString(c.Language, "unknown_person"),
	}

	if otherID, ok := chat.OtherUser(userID); ok {
		other, err := c.Storage.GetUserByID(ctx, otherID)
		switch {
		case err == nil:
			conv.PersonName = other.Name
			conv.IsActive = other.IsOnline
		case !errors.Is(err, storage.ErrNotFound):
			return conv, fmt.Errorf("failed to load participant: %w", err)
		}
	}

	if last, ok := chat.LastMessage(); ok {
		conv.LastMessage = last.Content
		conv.LastMessageTime = last.SentAt
		return conv, nil
	}

	conv.LastMessage = c.Localizer.GetString(c.Language, "no_messages_yet")
	messages, err := c.Storage.GetMessages(ctx, chat.ID)
	if err != nil {
		return conv, fmt.Errorf("failed to load messages: %w", err)
	}
	if len(messages) > 0 {
		conv.LastMessageTime = messages[0].SentAt
	} else {
		conv.LastMessageTime = chat.CreatedAt
	}
	return conv, nil
}
