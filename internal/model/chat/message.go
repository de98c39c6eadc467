package chat

import "time"

// Message is a single chat message with its reactions.
type Message struct {
	MessageID      int64      `json:"message_id"`
	ConversationID int64      `json:"conversation_id"`
	UserID         int64      `json:"user_id"`
	Text           string     `json:"text"`
	CreatedAt      time.Time  `json:"created_at"`
	IsEdited       bool       `json:"is_edited"`
	Reactions      []Reaction `json:"reactions"`
}
