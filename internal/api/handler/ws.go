package handler

import (
	"errors"
	"fidha/backend/internal/chathub"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var errNoHub = errors.New("push hub is not running")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Any origin may connect; identity comes from the session or token.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket підписує користувача на повний список повідомлень чату.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	if h.Hub == nil {
		respondError(c, errNoHub)
		return
	}
	user := currentUser(c)
	chat, err := h.Chats.GetChat(c.Request.Context(), c.Param("id"), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response.
		log.Printf("WARNING: WebSocket upgrade failed for %s: %v", user.ID, err)
		return
	}

	client := chathub.NewWebSocketClient(h.Hub, conn, user.ID, chat.ID)
	select {
	case h.Hub.RegisterCh <- client:
	case <-h.Hub.Done():
		conn.Close()
		return
	}
	client.Run()
}

// ServeNearbyWebSocket підписує користувача на живий список людей поруч.
func (h *Handler) ServeNearbyWebSocket(c *gin.Context) {
	if h.Nearby == nil {
		respondError(c, errNoHub)
		return
	}
	user := currentUser(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WARNING: WebSocket upgrade failed for %s: %v", user.ID, err)
		return
	}

	client := chathub.NewNearbyWebSocketClient(h.Nearby, conn, user.ID)
	select {
	case h.Nearby.RegisterCh <- client:
	case <-h.Nearby.Done():
		conn.Close()
		return
	}
	client.Run()
}
