// Package store holds the client-side entity state. Each store owns its
// entities exclusively: the event router and the command methods are the
// only writers, presentation layers read snapshots. Commands never mutate
// local state on success — the authoritative mutation arrives through the
// matching push event.
package store

import (
	"context"
	"sync"

	"github.com/vkazakov/chatline/internal/model/chat"
)

// ChatAPI is the slice of the request layer the chat store depends on.
type ChatAPI interface {
	Chats(ctx context.Context) ([]chat.Chat, error)
	CreateChat(ctx context.Context, tag string) error
	DeleteChat(ctx context.Context, conversationID int64) error
	UserByID(ctx context.Context, id int64) (chat.User, error)
}

// ChatStore keeps the conversation list, the current selection and the
// profile of the selected conversation's other participant.
type ChatStore struct {
	api ChatAPI

	mu       sync.RWMutex
	chats    []chat.Chat
	selected int64 // 0 means no selection
	other    *chat.User
	loading  bool
	err      string
	closed   bool
}

// NewChatStore wires a chat store to the request layer.
func NewChatStore(api ChatAPI) *ChatStore {
	return &ChatStore{api: api}
}

// Chats returns a snapshot of the conversation list, newest-known first.
func (s *ChatStore) Chats() []chat.Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]chat.Chat, len(s.chats))
	copy(out, s.chats)
	return out
}

// Add inserts a conversation at the front of the list. Inserting an id
// that is already present is a no-op: a locally triggered create may race
// with its own echoed push event, and duplicate delivery must not produce
// a duplicate row.
func (s *ChatStore) Add(c chat.Chat) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.chats {
		if existing.ConversationID == c.ConversationID {
			return
		}
	}
	s.chats = append([]chat.Chat{c}, s.chats...)
}

// Remove deletes a conversation by id. If the removed conversation was
// selected, the selection is cleared.
func (s *ChatStore) Remove(conversationID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.chats[:0]
	for _, c := range s.chats {
		if c.ConversationID != conversationID {
			kept = append(kept, c)
		}
	}
	s.chats = kept

	if s.selected == conversationID {
		s.selected = 0
		s.other = nil
	}
}

// Update applies a partial mutation to the conversation with the given id.
func (s *ChatStore) Update(conversationID int64, upd chat.ChatUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.chats {
		if s.chats[i].ConversationID != conversationID {
			continue
		}
		if upd.Title != nil {
			s.chats[i].Title = upd.Title
		}
		if upd.LastMessage != nil {
			s.chats[i].LastMessage = *upd.LastMessage
		}
		if upd.LastMessageTime != nil {
			s.chats[i].LastMessageTime = *upd.LastMessageTime
		}
		if upd.UnreadCount != nil {
			s.chats[i].UnreadCount = *upd.UnreadCount
		}
		return
	}
}

// Refresh replaces the list with the server's view. A response landing
// after Close is dropped so a torn-down screen never mutates state.
func (s *ChatStore) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	s.err = ""
	s.mu.Unlock()

	chats, err := s.api.Chats(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.loading = false
	if err != nil {
		s.err = "failed to load chats"
		return err
	}
	s.chats = chats
	return nil
}

// Create asks the server to open a conversation with the user behind tag.
// The list itself is only mutated by the chat.created push event.
func (s *ChatStore) Create(ctx context.Context, tag string) error {
	return s.api.CreateChat(ctx, tag)
}

// Delete asks the server to remove a conversation. The list is only
// mutated by the chat.deleted push event.
func (s *ChatStore) Delete(ctx context.Context, conversationID int64) error {
	return s.api.DeleteChat(ctx, conversationID)
}

// Select marks a conversation as the active one. Selecting 0 clears it.
func (s *ChatStore) Select(conversationID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = conversationID
	if conversationID == 0 {
		s.other = nil
	}
}

// Selected returns the active conversation id, if any.
func (s *ChatStore) Selected() (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected, s.selected != 0
}

// LoadOtherUser fetches and replaces the profile shown for the selected
// conversation's other participant. On failure the profile is cleared
// rather than left stale.
func (s *ChatStore) LoadOtherUser(ctx context.Context, userID int64) error {
	user, err := s.api.UserByID(ctx, userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if err != nil {
		s.other = nil
		return err
	}
	s.other = &user
	return nil
}

// OtherUser returns the profile of the selected conversation's other
// participant, or nil when none is loaded.
func (s *ChatStore) OtherUser() *chat.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.other == nil {
		return nil
	}
	u := *s.other
	return &u
}

// Loading reports whether a list refresh is outstanding.
func (s *ChatStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err returns the last refresh failure, "" when the last refresh
// succeeded. Retry is manual: call Refresh again.
func (s *ChatStore) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Close marks the store torn down; late responses are discarded.
func (s *ChatStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
