// Package event defines the push frames arriving over the websocket and
// decodes them once, at the channel boundary, into a closed set of typed
// events.
package event

import (
	"encoding/json"
	"fmt"

	"github.com/vkazakov/chatline/internal/model/chat"
)

// Type tags a push frame on the wire.
type Type string

const (
	TypeMessageCreated  Type = "message.created"
	TypeMessageUpdated  Type = "message.updated"
	TypeMessageDeleted  Type = "message.deleted"
	TypeReactionAdded   Type = "reaction.added"
	TypeReactionRemoved Type = "reaction.removed"
	TypeChatCreated     Type = "chat.created"
	TypeChatDeleted     Type = "chat.deleted"
	TypeNotification    Type = "notification"
	TypeError           Type = "error"
)

// Notification sub-kinds carried in the event_type payload field.
const (
	NotificationNewMessage  = "new_message"
	NotificationNewReaction = "new_reaction"
)

// Envelope is the raw wire form of a push frame.
type Envelope struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Event is one decoded push frame. The concrete type carries the payload
// shape for its tag; frames with a tag outside the known set decode to
// Unknown so that new server event types never break the client.
type Event interface {
	Kind() Type
}

// ChatCreated announces a conversation the current user participates in.
type ChatCreated struct {
	Chat chat.Chat
}

// ChatDeleted announces removal of a conversation.
type ChatDeleted struct {
	ConversationID int64 `json:"conversation_id"`
}

// MessageCreated carries a freshly stored message, reactions included.
type MessageCreated struct {
	Message chat.Message
}

// MessageUpdated carries the edited text of an existing message.
type MessageUpdated struct {
	MessageID int64  `json:"message_id"`
	Text      string `json:"text"`
}

// MessageDeleted announces removal of a message.
type MessageDeleted struct {
	MessageID int64 `json:"message_id"`
}

// ReactionAdded carries a new reaction on a message.
type ReactionAdded struct {
	Reaction chat.Reaction
}

// ReactionRemoved announces removal of a reaction from a message.
type ReactionRemoved struct {
	MessageID  int64 `json:"message_id"`
	ReactionID int64 `json:"reaction_id"`
}

// Notification is a server-composed transient notice for the recipient.
type Notification struct {
	EventType    string            `json:"event_type"`
	ChatName     string            `json:"chat_name"`
	SenderTag    string            `json:"sender_tag"`
	Text         string            `json:"text,omitempty"`
	ReactionType chat.ReactionType `json:"reaction_type,omitempty"`
}

// Unknown wraps a frame whose tag the client does not recognize.
type Unknown struct {
	Type    Type
	Payload json.RawMessage
}

func (ChatCreated) Kind() Type     { return TypeChatCreated }
func (ChatDeleted) Kind() Type     { return TypeChatDeleted }
func (MessageCreated) Kind() Type  { return TypeMessageCreated }
func (MessageUpdated) Kind() Type  { return TypeMessageUpdated }
func (MessageDeleted) Kind() Type  { return TypeMessageDeleted }
func (ReactionAdded) Kind() Type   { return TypeReactionAdded }
func (ReactionRemoved) Kind() Type { return TypeReactionRemoved }
func (Notification) Kind() Type    { return TypeNotification }
func (u Unknown) Kind() Type       { return u.Type }

// Decode parses one wire frame into its typed event. A frame that is not
// valid JSON, or whose payload does not match the shape for its tag, is a
// protocol error.
func Decode(data []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	switch env.Type {
	case TypeChatCreated:
		var ev ChatCreated
		if err := json.Unmarshal(env.Payload, &ev.Chat); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", env.Type, err)
		}
		return ev, nil
	case TypeChatDeleted:
		var ev ChatDeleted
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", env.Type, err)
		}
		return ev, nil
	case TypeMessageCreated:
		var ev MessageCreated
		if err := json.Unmarshal(env.Payload, &ev.Message); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", env.Type, err)
		}
		return ev, nil
	case TypeMessageUpdated:
		var ev MessageUpdated
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", env.Type, err)
		}
		return ev, nil
	case TypeMessageDeleted:
		var ev MessageDeleted
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", env.Type, err)
		}
		return ev, nil
	case TypeReactionAdded:
		var ev ReactionAdded
		if err := json.Unmarshal(env.Payload, &ev.Reaction); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", env.Type, err)
		}
		return ev, nil
	case TypeReactionRemoved:
		var ev ReactionRemoved
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", env.Type, err)
		}
		return ev, nil
	case TypeNotification:
		var ev Notification
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", env.Type, err)
		}
		return ev, nil
	default:
		return Unknown{Type: env.Type, Payload: env.Payload}, nil
	}
}
