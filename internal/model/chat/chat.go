package chat

// Chat is one participant's view of a one-to-one conversation.
type Chat struct {
	ConversationID  int64   `json:"conversation_id"`
	Title           *string `json:"title"`
	UserID          int64   `json:"user_id"`
	UserID2         int64   `json:"user_id2"`
	LastMessage     string  `json:"last_message,omitempty"`
	LastMessageTime string  `json:"last_message_time,omitempty"`
	UnreadCount     int     `json:"unread_count,omitempty"`
}

// OtherParticipant returns the participant that is not the given user.
func (c Chat) OtherParticipant(userID int64) int64 {
	if c.UserID == userID {
		return c.UserID2
	}
	return c.UserID
}

// ChatUpdate is a partial in-place mutation of preview fields. Nil fields
// are left untouched.
type ChatUpdate struct {
	Title           *string
	LastMessage     *string
	LastMessageTime *string
	UnreadCount     *int
}
