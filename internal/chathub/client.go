package chathub

import "fidha/backend/internal/models"

// Client is the interface for any subscriber of a chat (e.g., a WebSocket).
// It abstracts the underlying transport so the hub can manage every client
// type uniformly.
type Client interface {
	// GetUserID returns the participant the client belongs to.
	GetUserID() string
	// GetChatID returns the chat the client watches.
	GetChatID() string

	// GetSendChannel returns the channel the hub pushes snapshots to.
	GetSendChannel() chan<- models.ChatSnapshot

	// Run starts the client's pumps.
	Run()
	// Close closes the send channel, which ends the write pump. Only the hub
	// calls it, once.
	Close()
}
