package chathub

import (
	"context"
	"errors"
	"fidha/backend/internal/config"
	"fidha/backend/internal/jobs"
	"fidha/backend/internal/localization"
	"fidha/backend/internal/models"
	"fidha/backend/internal/storage"
	"fmt"
	"log"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

var (
	ErrEmptyMessage   = errors.New("message content is empty")
	ErrNotParticipant = errors.New("user is not a participant of this chat")
	ErrChatClosed     = errors.New("chat is closed")
)

// ChatService зберігає впорядковані повідомлення чатів і планує імітовані
// відповіді співрозмовника.
type ChatService struct {
	Storage   storage.Storage
	Notifier  Notifier
	Scheduler jobs.Scheduler
	Clock     clockwork.Clock
	Localizer *localization.Localizer
	Language  string

	ReplyDelayMin    time.Duration
	ReplyDelayMax    time.Duration
	SimulatedReplies bool

	mu sync.Mutex
	// pending: заплановані відповіді по кожному чату.
	pending map[string]map[string]struct{}
	closed  bool
}

func NewChatService(s storage.Storage, n Notifier, sched jobs.Scheduler, clock clockwork.Clock, loc *localization.Localizer, lang string) *ChatService {
	return &ChatService{
		Storage:          s,
		Notifier:         n,
		Scheduler:        sched,
		Clock:            clock,
		Localizer:        loc,
		Language:         lang,
		ReplyDelayMin:    config.DefaultReplyDelayMin,
		ReplyDelayMax:    config.DefaultReplyDelayMax,
		SimulatedReplies: true,
		pending:          make(map[string]map[string]struct{}),
	}
}

// GetMessages returns the chat's messages, oldest first. Unknown chats have
// no messages.
func (c *ChatService) GetMessages(ctx context.Context, chatID string) ([]models.ChatMessage, error) {
	messages, err := c.Storage.GetMessages(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	return messages, nil
}

// GetChat returns the chat if userID takes part in it.
func (c *ChatService) GetChat(ctx context.Context, chatID, userID string) (*models.Chat, error) {
	chat, err := c.Storage.GetChatByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasUser(userID) {
		return nil, ErrNotParticipant
	}
	return chat, nil
}

// MessagesFor is GetMessages on behalf of userID: unknown chats are empty,
// chats the user is not part of are refused.
func (c *ChatService) MessagesFor(ctx context.Context, chatID, userID string) ([]models.ChatMessage, error) {
	if _, err := c.GetChat(ctx, chatID, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return []models.ChatMessage{}, nil
		}
		return nil, err
	}
	return c.GetMessages(ctx, chatID)
}

// ListChats returns the user's chats, most recent activity first.
func (c *ChatService) ListChats(ctx context.Context, userID string) ([]models.Chat, error) {
	return c.Storage.ListChatsForUser(ctx, userID)
}

// Send додає повідомлення від senderID і планує відповідь співрозмовника.
func (c *ChatService) Send(ctx context.Context, chatID, senderID, content string) (*models.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}

	chat, err := c.Storage.GetChatByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	other, ok := chat.OtherUser(senderID)
	if !ok {
		return nil, ErrNotParticipant
	}
	if err := c.ensureOpen(ctx, chat); err != nil {
		return nil, err
	}

	msg := &models.ChatMessage{
		ChatID:   chatID,
		SenderID: senderID,
		Content:  content,
		SentAt:   c.Clock.Now().UTC(),
	}
	if err := c.Storage.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}
	c.publish(chatID)

	if c.SimulatedReplies {
		c.scheduleReply(chatID, other)
	}
	return msg, nil
}

func (c *ChatService) ensureOpen(ctx context.Context, chat *models.Chat) error {
	match, err := c.Storage.GetMatchByID(ctx, chat.MatchID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}
	if match.Status == models.MatchStatusExpired {
		return ErrChatClosed
	}
	return nil
}

func (c *ChatService) publish(chatID string) {
	if c.Notifier == nil {
		return
	}
	if err := c.Notifier.Publish(context.Background(), chatID); err != nil {
		log.Printf("WARNING: Failed to publish change for chat %s: %v", chatID, err)
	}
}

func (c *ChatService) scheduleReply(chatID, counterpartID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	var jobID string
	id, err := c.Scheduler.After(c.replyDelay(), func() {
		c.mu.Lock()
		known := c.forget(chatID, jobID)
		c.mu.Unlock()
		if known {
			c.deliverReply(chatID, counterpartID)
		}
	})
	if err != nil {
		log.Printf("ERROR: Failed to schedule reply for chat %s: %v", chatID, err)
		return
	}
	jobID = id
	if c.pending[chatID] == nil {
		c.pending[chatID] = make(map[string]struct{})
	}
	c.pending[chatID][jobID] = struct{}{}
}

// forget drops a job from the pending set and reports whether it was still
// there. Must be called with c.mu held.
func (c *ChatService) forget(chatID, jobID string) bool {
	jobsForChat, ok := c.pending[chatID]
	if !ok {
		return false
	}
	if _, ok := jobsForChat[jobID]; !ok {
		return false
	}
	delete(jobsForChat, jobID)
	if len(jobsForChat) == 0 {
		delete(c.pending, chatID)
	}
	return true
}

func (c *ChatService) deliverReply(chatID, counterpartID string) {
	key := fmt.Sprintf("counterpart_reply_%d", rand.IntN(config.CannedReplyCount)+1)
	reply := &models.ChatMessage{
		ChatID:   chatID,
		SenderID: counterpartID,
		Content:  c.Localizer.GetString(c.Language, key),
		SentAt:   c.Clock.Now().UTC(),
	}
	if err := c.Storage.AppendMessage(context.Background(), reply); err != nil {
		log.Printf("ERROR: Failed to deliver simulated reply to chat %s: %v", chatID, err)
		return
	}
	c.publish(chatID)
}

func (c *ChatService) replyDelay() time.Duration {
	lo, hi := c.ReplyDelayMin, c.ReplyDelayMax
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo)
}

// PendingReplies reports how many replies are scheduled for the chat.
func (c *ChatService) PendingReplies(chatID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending[chatID])
}

// CancelPending cancels every scheduled reply for the chat.
func (c *ChatService) CancelPending(chatID string) {
	c.mu.Lock()
	ids := make([]string, 0, len(c.pending[chatID]))
	for id := range c.pending[chatID] {
		ids = append(ids, id)
	}
	delete(c.pending, chatID)
	c.mu.Unlock()

	for _, id := range ids {
		if err := c.Scheduler.Cancel(id); err != nil {
			log.Printf("WARNING: Failed to cancel reply job %s: %v", id, err)
		}
	}
}

// Close cancels all scheduled replies and stops scheduling new ones.
func (c *ChatService) Close() {
	c.mu.Lock()
	c.closed = true
	chatIDs := make([]string, 0, len(c.pending))
	for id := range c.pending {
		chatIDs = append(chatIDs, id)
	}
	c.mu.Unlock()

	for _, id := range chatIDs {
		c.CancelPending(id)
	}
}
