package models

import "time"

// ChatMessage is one timestamped message in a contract's conversation thread.
// The coordination core never reads message bodies; this is plain
// append/listen transport.
type ChatMessage struct {
	ID       string    `json:"id,omitempty"`
	SenderID string    `json:"senderId"`
	Body     string    `json:"body"`
	SentAt   time.Time `json:"sentAt"`
}
