package chat

// ReactionType is the closed set of reactions a message can carry.
type ReactionType string

const (
	ReactionLike        ReactionType = "like"
	ReactionLaugh       ReactionType = "laugh"
	ReactionSad         ReactionType = "sad"
	ReactionHeart       ReactionType = "heart"
	ReactionEmbarrassed ReactionType = "embarrassed"
)

// Valid reports whether t is one of the known reaction types.
func (t ReactionType) Valid() bool {
	switch t {
	case ReactionLike, ReactionLaugh, ReactionSad, ReactionHeart, ReactionEmbarrassed:
		return true
	}
	return false
}

// Emoji returns the display glyph for the reaction type, or "" for an
// unknown type.
func (t ReactionType) Emoji() string {
	switch t {
	case ReactionLike:
		return "👍"
	case ReactionHeart:
		return "❤️"
	case ReactionLaugh:
		return "😄"
	case ReactionSad:
		return "😢"
	case ReactionEmbarrassed:
		return "😮"
	}
	return ""
}

// ReactionTypeForEmoji maps a display glyph back to its reaction type.
func ReactionTypeForEmoji(emoji string) ReactionType {
	switch emoji {
	case "👍":
		return ReactionLike
	case "❤️":
		return ReactionHeart
	case "😄":
		return ReactionLaugh
	case "😢":
		return ReactionSad
	case "😮":
		return ReactionEmbarrassed
	}
	return ""
}

// Reaction is one user's reaction on a message.
type Reaction struct {
	ReactionID   int64        `json:"reaction_id"`
	ReactionType ReactionType `json:"reaction_type"`
	UserID       int64        `json:"user_id"`
	MessageID    int64        `json:"message_id"`
}
