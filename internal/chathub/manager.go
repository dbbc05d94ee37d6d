package chathub

import (
	"context"
	"fidha/backend/internal/models"
	"log"
	"sync"
)

// ChatSource is the part of the chat store the hub needs.
type ChatSource interface {
	GetMessages(ctx context.Context, chatID string) ([]models.ChatMessage, error)
	Send(ctx context.Context, chatID, senderID, content string) (*models.ChatMessage, error)
}

// ManagerService є хабом push-сповіщень. It keeps the subscribers of every chat and,
// whenever a chat changes, re-delivers the full ordered message list to each
// of them.
type ManagerService struct {
	Chats    ChatSource
	Notifier Notifier

	// Channels
	RegisterCh   chan Client
	UnregisterCh chan Client
	IncomingCh   chan models.SendRequest

	// clients належить горутині Run.
	clients map[string]map[Client]struct{}

	done     chan struct{}
	doneOnce sync.Once
}

// NewManagerService створює хаб; запускається через Run.
func NewManagerService(chats ChatSource, n Notifier) *ManagerService {
	return &ManagerService{
		Chats:        chats,
		Notifier:     n,
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client, 16),
		IncomingCh:   make(chan models.SendRequest, 16),
		clients:      make(map[string]map[Client]struct{}),
		done:         make(chan struct{}),
	}
}

// Done is closed once Run has returned.
func (m *ManagerService) Done() <-chan struct{} {
	return m.done
}

// Run обробляє реєстрації, вхідні повідомлення та події змін, доки ctx не
// скасовано.
func (m *ManagerService) Run(ctx context.Context) error {
	defer m.doneOnce.Do(func() { close(m.done) })

	changes, err := m.Notifier.Subscribe(ctx)
	if err != nil {
		log.Printf("ERROR: Hub failed to subscribe to chat changes: %v", err)
		return err
	}
	log.Println("INFO: Chat hub started.")

	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			log.Println("INFO: Chat hub stopped.")
			return nil

		case client := <-m.RegisterCh:
			m.addClient(client)
			m.deliver(ctx, client.GetChatID(), client)

		case client := <-m.UnregisterCh:
			m.removeClient(client)

		case req := <-m.IncomingCh:
			// Send може чекати на сховище, тому не блокуємо цикл хабу.
			go func(req models.SendRequest) {
				if _, err := m.Chats.Send(ctx, req.ChatID, req.SenderID, req.Content); err != nil {
					log.Printf("WARNING: Message from %s to chat %s rejected: %v", req.SenderID, req.ChatID, err)
				}
			}(req)

		case chatID, ok := <-changes:
			if !ok {
				changes = nil
				log.Println("WARNING: Chat change subscription closed")
				continue
			}
			m.deliver(ctx, chatID, nil)
		}
	}
}

func (m *ManagerService) addClient(client Client) {
	chatID := client.GetChatID()
	if m.clients[chatID] == nil {
		m.clients[chatID] = make(map[Client]struct{})
	}
	m.clients[chatID][client] = struct{}{}
	log.Printf("INFO: Client %s subscribed to chat %s", client.GetUserID(), chatID)
}

// removeClient видаляє клієнта і закриває його, якщо він ще зареєстрований.
func (m *ManagerService) removeClient(client Client) {
	chatID := client.GetChatID()
	subs, ok := m.clients[chatID]
	if !ok {
		return
	}
	if _, ok := subs[client]; !ok {
		return
	}
	delete(subs, client)
	if len(subs) == 0 {
		delete(m.clients, chatID)
	}
	client.Close()
	log.Printf("INFO: Client %s unsubscribed from chat %s", client.GetUserID(), chatID)
}

// deliver sends the chat's current snapshot to one client, or to every
// subscriber when only is nil. Slow clients are dropped.
func (m *ManagerService) deliver(ctx context.Context, chatID string, only Client) {
	targets := m.clients[chatID]
	if len(targets) == 0 {
		return
	}
	messages, err := m.Chats.GetMessages(ctx, chatID)
	if err != nil {
		log.Printf("ERROR: Failed to load snapshot for chat %s: %v", chatID, err)
		return
	}
	snapshot := models.ChatSnapshot{ChatID: chatID, Messages: messages}

	for client := range targets {
		if only != nil && client != only {
			continue
		}
		select {
		case client.GetSendChannel() <- snapshot:
		default:
			log.Printf("WARNING: Client %s is too slow, dropping it", client.GetUserID())
			m.removeClient(client)
		}
	}
}

func (m *ManagerService) closeAll() {
	for _, subs := range m.clients {
		for client := range subs {
			client.Close()
		}
	}
	m.clients = make(map[string]map[Client]struct{})
}
