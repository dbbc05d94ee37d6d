package handler

import (
	"context"
	"errors"
	"fidha/backend/internal/chathub"
	"fidha/backend/internal/directory"
	"fidha/backend/internal/storage"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
)

// Handler з'єднує HTTP API із сервісами.
type Handler struct {
	Directory     *directory.Service
	Matcher       *chathub.MatcherService
	Chats         *chathub.ChatService
	Conversations *chathub.ConversationService
	Hub           *chathub.ManagerService
	Nearby        *chathub.NearbyHub

	Sessions  sessions.Store
	JWTSecret string
}

func NewHandler(
	dir *directory.Service,
	matcher *chathub.MatcherService,
	chats *chathub.ChatService,
	conversations *chathub.ConversationService,
	hub *chathub.ManagerService,
	nearby *chathub.NearbyHub,
	sessionStore sessions.Store,
	jwtSecret string,
) *Handler {
	return &Handler{
		Directory:     dir,
		Matcher:       matcher,
		Chats:         chats,
		Conversations: conversations,
		Hub:           hub,
		Nearby:        nearby,
		Sessions:      sessionStore,
		JWTSecret:     jwtSecret,
	}
}

// RegisterRoutes реєструє маршрути API під /api/v1.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	v1 := r.Group("/api/v1")
	v1.Use(h.CurrentUser())
	{
		v1.GET("/anonid", h.GetAnonID)
		v1.POST("/me/offline", h.GoOffline)
		v1.GET("/nearby", h.ListNearby)
		v1.GET("/nearby/ws", h.ServeNearbyWebSocket)
		v1.POST("/descriptions", h.SubmitDescription)
		v1.GET("/matches", h.ListMatches)
		v1.GET("/chats", h.ListChats)
		v1.GET("/chats/:id/messages", h.GetMessages)
		v1.POST("/chats/:id/messages", h.SendMessage)
		v1.GET("/chats/:id/ws", h.ServeWebSocket)
		v1.GET("/conversations", h.ListConversations)
	}
}

// respondError перетворює помилки сервісів на HTTP-статуси.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, chathub.ErrSelfTarget), errors.Is(err, chathub.ErrEmptyMessage):
		status = http.StatusBadRequest
	case errors.Is(err, chathub.ErrNotParticipant):
		status = http.StatusForbidden
	case errors.Is(err, chathub.ErrChatClosed):
		status = http.StatusConflict
	case errors.Is(err, errNoHub):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	if status == http.StatusInternalServerError {
		log.Printf("ERROR: %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
