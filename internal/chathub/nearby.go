package chathub

import (
	"context"
	"fidha/backend/internal/models"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// NearbySource is the part of the directory the nearby hub needs.
type NearbySource interface {
	OnlineUsers(ctx context.Context) ([]models.User, error)
}

// NearbySubscriber отримує живий список людей поруч.
type NearbySubscriber interface {
	GetUserID() string
	GetSendChannel() chan<- models.NearbySnapshot
	Run()
	// Close is called by the hub exactly once.
	Close()
}

// NearbyHub pushes the online directory to its subscribers whenever someone's
// presence changes. Each subscriber sees everyone online except themselves.
type NearbyHub struct {
	Directory NearbySource
	Notifier  Notifier
	Limit     int

	// Channels
	RegisterCh   chan NearbySubscriber
	UnregisterCh chan NearbySubscriber

	// clients належить горутині Run.
	clients map[NearbySubscriber]struct{}

	done     chan struct{}
	doneOnce sync.Once
}

// NewNearbyHub creates a hub; call Run to start it. A limit <= 0 means no
// limit.
func NewNearbyHub(dir NearbySource, n Notifier, limit int) *NearbyHub {
	return &NearbyHub{
		Directory:    dir,
		Notifier:     n,
		Limit:        limit,
		RegisterCh:   make(chan NearbySubscriber),
		UnregisterCh: make(chan NearbySubscriber, 16),
		clients:      make(map[NearbySubscriber]struct{}),
		done:         make(chan struct{}),
	}
}

// Done is closed once Run has returned.
func (h *NearbyHub) Done() <-chan struct{} {
	return h.done
}

// Run обробляє реєстрації та події присутності, доки ctx не скасовано.
func (h *NearbyHub) Run(ctx context.Context) error {
	defer h.doneOnce.Do(func() { close(h.done) })

	changes, err := h.Notifier.Subscribe(ctx)
	if err != nil {
		log.Printf("ERROR: Nearby hub failed to subscribe to presence changes: %v", err)
		return err
	}
	log.Println("INFO: Nearby hub started.")

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				client.Close()
			}
			h.clients = make(map[NearbySubscriber]struct{})
			log.Println("INFO: Nearby hub stopped.")
			return nil

		case client := <-h.RegisterCh:
			h.clients[client] = struct{}{}
			log.Printf("INFO: Client %s subscribed to nearby users", client.GetUserID())
			h.deliver(ctx, client)

		case client := <-h.UnregisterCh:
			h.removeClient(client)

		case _, ok := <-changes:
			if !ok {
				changes = nil
				log.Println("WARNING: Presence subscription closed")
				continue
			}
			h.deliver(ctx, nil)
		}
	}
}

func (h *NearbyHub) removeClient(client NearbySubscriber) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	client.Close()
	log.Printf("INFO: Client %s unsubscribed from nearby users", client.GetUserID())
}

// deliver sends the current list to one client, or to all of them when only
// is nil. The directory is read once per call. Slow clients are dropped.
func (h *NearbyHub) deliver(ctx context.Context, only NearbySubscriber) {
	if len(h.clients) == 0 {
		return
	}
	online, err := h.Directory.OnlineUsers(ctx)
	if err != nil {
		log.Printf("ERROR: Failed to load online users: %v", err)
		return
	}

	for client := range h.clients {
		if only != nil && client != only {
			continue
		}
		snapshot := models.NearbySnapshot{Users: h.nearbyOf(online, client.GetUserID())}
		select {
		case client.GetSendChannel() <- snapshot:
		default:
			log.Printf("WARNING: Client %s is too slow, dropping it", client.GetUserID())
			h.removeClient(client)
		}
	}
}

// nearbyOf keeps the directory order, drops self and applies the limit.
func (h *NearbyHub) nearbyOf(online []models.User, self string) []models.User {
	users := make([]models.User, 0, len(online))
	for _, u := range online {
		if u.ID == self {
			continue
		}
		users = append(users, u)
		if h.Limit > 0 && len(users) == h.Limit {
			break
		}
	}
	return users
}

// NearbyWebSocketClient реалізує NearbySubscriber поверх gorilla/websocket.
// The stream is push-only; anything the browser sends is ignored.
type NearbyWebSocketClient struct {
	UserID string
	Conn   *websocket.Conn
	Hub    *NearbyHub
	Send   chan models.NearbySnapshot
}

func NewNearbyWebSocketClient(hub *NearbyHub, conn *websocket.Conn, userID string) *NearbyWebSocketClient {
	return &NearbyWebSocketClient{
		UserID: userID,
		Conn:   conn,
		Hub:    hub,
		Send:   make(chan models.NearbySnapshot, 8),
	}
}

func (c *NearbyWebSocketClient) GetUserID() string                            { return c.UserID }
func (c *NearbyWebSocketClient) GetSendChannel() chan<- models.NearbySnapshot { return c.Send }

func (c *NearbyWebSocketClient) Run() {
	go writePump(c.Conn, c.Send, c.UserID)
	go c.readPump()
}

func (c *NearbyWebSocketClient) Close() {
	close(c.Send)
}

// readPump лише обробляє керуючі фрейми та помічає відключення.
func (c *NearbyWebSocketClient) readPump() {
	defer func() {
		select {
		case c.Hub.UnregisterCh <- c:
		case <-c.Hub.Done():
		}
		c.Conn.Close()
	}()

	prepareRead(c.Conn)
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			logReadError(c.UserID, err)
			return
		}
	}
}
