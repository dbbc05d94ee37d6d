package models

// ChatSnapshot is pushed to subscribers on every change of a chat. It always
// carries the full ordered message list, never a delta.
type ChatSnapshot struct {
	ChatID   string        `json:"chat_id"`
	Messages []ChatMessage `json:"messages"`
}

// OutgoingMessage is what a subscriber writes on its socket to send a message.
type OutgoingMessage struct {
	Content string `json:"content"`
}

// SendRequest is a message handed to the hub for delivery into a chat.
type SendRequest struct {
	ChatID   string
	SenderID string
	Content  string
}

// NearbySnapshot is pushed to directory subscribers whenever someone's
// presence changes. It carries the whole nearby list for the subscriber.
type NearbySnapshot struct {
	Users []User `json:"users"`
}
