package chathub

import (
	"encoding/json"
	"fidha/backend/internal/models"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// WebSocketClient реалізує Client поверх з'єднання gorilla/websocket.
type WebSocketClient struct {
	UserID string
	ChatID string
	Conn   *websocket.Conn
	Hub    *ManagerService
	Send   chan models.ChatSnapshot
}

func NewWebSocketClient(hub *ManagerService, conn *websocket.Conn, userID, chatID string) *WebSocketClient {
	return &WebSocketClient{
		UserID: userID,
		ChatID: chatID,
		Conn:   conn,
		Hub:    hub,
		Send:   make(chan models.ChatSnapshot, 8),
	}
}

func (c *WebSocketClient) GetUserID() string                          { return c.UserID }
func (c *WebSocketClient) GetChatID() string                          { return c.ChatID }
func (c *WebSocketClient) GetSendChannel() chan<- models.ChatSnapshot { return c.Send }

// Run запускає read- та write-помпи.
func (c *WebSocketClient) Run() {
	go writePump(c.Conn, c.Send, c.UserID)
	go c.readPump()
}

// Close закриває Send, що зупиняє writePump.
func (c *WebSocketClient) Close() {
	close(c.Send)
}

// readPump читає повідомлення від клієнта і передає їх у Hub.
func (c *WebSocketClient) readPump() {
	defer func() {
		select {
		case c.Hub.UnregisterCh <- c:
		case <-c.Hub.Done():
		}
		c.Conn.Close()
	}()

	prepareRead(c.Conn)

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			logReadError(c.UserID, err)
			return
		}

		var out models.OutgoingMessage
		if err := json.Unmarshal(data, &out); err != nil {
			log.Printf("WARNING: Error decoding JSON from client %s: %v", c.UserID, err)
			continue
		}

		req := models.SendRequest{ChatID: c.ChatID, SenderID: c.UserID, Content: out.Content}
		select {
		case c.Hub.IncomingCh <- req:
		case <-c.Hub.Done():
			return
		}
	}
}

// prepareRead встановлює ліміт читання та дедлайни, які продовжує pong.
func prepareRead(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
}

func logReadError(userID string, err error) {
	if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
		log.Printf("WARNING: error reading from client %s: %v", userID, err)
	}
}

// writePump пише знімки у з'єднання і пінгує клієнта. It returns when send is
// closed or a write fails.
func writePump[T any](conn *websocket.Conn, send <-chan T, userID string) {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case snapshot, ok := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub закрив канал, прощаємося з клієнтом.
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// Важливий лише найновіший знімок; пропускаємо ті, що вже в черзі за ним.
			for n := len(send); n > 0; n-- {
				next, ok := <-send
				if !ok {
					conn.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				snapshot = next
			}

			if err := conn.WriteJSON(snapshot); err != nil {
				log.Printf("WARNING: Error writing to client %s: %v", userID, err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
