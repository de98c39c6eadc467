package store

import (
	"context"
	"log"
	"sync"

	"github.com/vkazakov/chatline/internal/model/chat"
	"github.com/vkazakov/chatline/internal/model/event"
)

// MessageAPI is the slice of the request layer the message store depends on.
type MessageAPI interface {
	Messages(ctx context.Context, conversationID int64) ([]chat.Message, error)
	SendMessage(ctx context.Context, conversationID int64, text string) error
	EditMessage(ctx context.Context, conversationID, messageID int64, text string) error
	DeleteMessage(ctx context.Context, conversationID, messageID int64) error
	AddReaction(ctx context.Context, messageID int64, reaction chat.ReactionType) error
	RemoveReaction(ctx context.Context, messageID, reactionID int64) error
}

// MessageStore holds the message sequence of the single active
// conversation. Opening another conversation replaces the contents via
// Load.
type MessageStore struct {
	api MessageAPI

	mu       sync.RWMutex
	messages []chat.Message
	loading  bool
	err      string
	closed   bool
}

// NewMessageStore wires a message store to the request layer.
func NewMessageStore(api MessageAPI) *MessageStore {
	return &MessageStore{api: api}
}

// Messages returns a snapshot of the active conversation's messages.
func (s *MessageStore) Messages() []chat.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]chat.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Load replaces the store contents with the given conversation's history.
// A response landing after Close is dropped.
func (s *MessageStore) Load(ctx context.Context, conversationID int64) error {
	s.mu.Lock()
	s.loading = true
	s.err = ""
	s.mu.Unlock()

	messages, err := s.api.Messages(ctx, conversationID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.loading = false
	if err != nil {
		s.err = "failed to load messages"
		return err
	}
	s.messages = messages
	return nil
}

// Send posts a message. The local sequence is only mutated by the
// message.created push echo.
func (s *MessageStore) Send(ctx context.Context, conversationID int64, text string) error {
	return s.api.SendMessage(ctx, conversationID, text)
}

// Edit replaces a message's text server-side; the message.updated echo
// applies it locally.
func (s *MessageStore) Edit(ctx context.Context, conversationID, messageID int64, text string) error {
	return s.api.EditMessage(ctx, conversationID, messageID, text)
}

// Delete removes a message server-side; the message.deleted echo applies
// it locally.
func (s *MessageStore) Delete(ctx context.Context, conversationID, messageID int64) error {
	return s.api.DeleteMessage(ctx, conversationID, messageID)
}

// AddReaction attaches a reaction server-side; the reaction.added echo
// applies it locally.
func (s *MessageStore) AddReaction(ctx context.Context, messageID int64, reaction chat.ReactionType) error {
	return s.api.AddReaction(ctx, messageID, reaction)
}

// RemoveReaction detaches a reaction server-side; the reaction.removed
// echo applies it locally.
func (s *MessageStore) RemoveReaction(ctx context.Context, messageID, reactionID int64) error {
	return s.api.RemoveReaction(ctx, messageID, reactionID)
}

// Apply is the single event-reconciliation entry point, consumed only by
// the event router. Unlike conversation insertion there is no idempotence
// guard here: a redelivered message.created or reaction.added duplicates
// its entry. That mirrors the server's at-least-once, best-effort push
// semantics and is intentional.
func (s *MessageStore) Apply(ev event.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev := ev.(type) {
	case event.MessageCreated:
		s.messages = append(s.messages, ev.Message)

	case event.MessageUpdated:
		for i := range s.messages {
			if s.messages[i].MessageID == ev.MessageID {
				s.messages[i].Text = ev.Text
				s.messages[i].IsEdited = true
			}
		}

	case event.MessageDeleted:
		kept := s.messages[:0]
		for _, m := range s.messages {
			if m.MessageID != ev.MessageID {
				kept = append(kept, m)
			}
		}
		s.messages = kept

	case event.ReactionAdded:
		for i := range s.messages {
			if s.messages[i].MessageID == ev.Reaction.MessageID {
				s.messages[i].Reactions = append(s.messages[i].Reactions, ev.Reaction)
			}
		}

	case event.ReactionRemoved:
		for i := range s.messages {
			if s.messages[i].MessageID != ev.MessageID {
				continue
			}
			kept := s.messages[i].Reactions[:0]
			for _, r := range s.messages[i].Reactions {
				if r.ReactionID != ev.ReactionID {
					kept = append(kept, r)
				}
			}
			s.messages[i].Reactions = kept
		}

	default:
		log.Printf("[store] message store cannot apply event %q", ev.Kind())
	}
}

// Loading reports whether a history load is outstanding.
func (s *MessageStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err returns the last load failure, "" when the last load succeeded.
func (s *MessageStore) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Close marks the store torn down; late responses are discarded.
func (s *MessageStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
