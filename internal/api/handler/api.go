package handler

import (
	"fidha/backend/internal/chathub"
	"fidha/backend/internal/models"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ListNearby runs a simulated scan for people around the caller.
func (h *Handler) ListNearby(c *gin.Context) {
	users, err := h.Directory.ListNearbyUsers(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

type submitResponse struct {
	MatchFound bool   `json:"match_found"`
	MatchID    string `json:"match_id,omitempty"`
	ChatID     string `json:"chat_id,omitempty"`
}

// SubmitDescription records a description of someone the caller noticed.
func (h *Handler) SubmitDescription(c *gin.Context) {
	var req chathub.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.Matcher.Submit(c.Request.Context(), currentUser(c).ID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := submitResponse{MatchFound: res.Matched}
	if res.Match != nil {
		resp.MatchID = res.Match.ID
		resp.ChatID = res.Match.ChatID
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) ListMatches(c *gin.Context) {
	matches, err := h.Matcher.ListMatches(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

type chatView struct {
	ID          string              `json:"id"`
	MatchID     string              `json:"match_id"`
	User1ID     string              `json:"user1_id"`
	User2ID     string              `json:"user2_id"`
	LastMessage *models.ChatMessage `json:"last_message,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

func newChatView(chat *models.Chat) chatView {
	v := chatView{
		ID:        chat.ID,
		MatchID:   chat.MatchID,
		User1ID:   chat.User1ID,
		User2ID:   chat.User2ID,
		CreatedAt: chat.CreatedAt,
	}
	if last, ok := chat.LastMessage(); ok {
		v.LastMessage = &last
	}
	return v
}

func (h *Handler) ListChats(c *gin.Context) {
	chats, err := h.Chats.ListChats(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	views := make([]chatView, 0, len(chats))
	for i := range chats {
		views = append(views, newChatView(&chats[i]))
	}
	c.JSON(http.StatusOK, gin.H{"chats": views})
}

func (h *Handler) GetMessages(c *gin.Context) {
	messages, err := h.Chats.MessagesFor(c.Request.Context(), c.Param("id"), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (h *Handler) SendMessage(c *gin.Context) {
	var body models.OutgoingMessage
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.Chats.Send(c.Request.Context(), c.Param("id"), currentUser(c).ID, body.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *Handler) ListConversations(c *gin.Context) {
	convs, err := h.Conversations.ListConversations(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}
