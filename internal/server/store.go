// Package server is an in-memory implementation of the chat backend the
// client talks to. It exists for local development and for integration
// tests; the real backend is an external system.
package server

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vkazakov/chatline/internal/model/chat"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrTagTaken   = errors.New("tag already taken")
	ErrChatExists = errors.New("chat already exists")
	ErrSelfChat   = errors.New("cannot create chat with yourself")
)

type userRecord struct {
	user         chat.User
	passwordHash []byte
}

// Store keeps all server-side state in memory, the same way the chat
// service kept sessions before a database landed.
type Store struct {
	mu sync.RWMutex

	users  map[int64]*userRecord
	byTag  map[string]int64
	chats  map[int64]chat.Chat
	msgs   map[int64]chat.Message
	byChat map[int64][]int64 // conversation id -> message ids in send order

	refresh map[string]int64 // refresh token jti -> user id

	nextUser, nextChat, nextMsg, nextReaction int64
}

// NewStore builds an empty store.
func NewStore() *Store {
	return &Store{
		users:   make(map[int64]*userRecord),
		byTag:   make(map[string]int64),
		chats:   make(map[int64]chat.Chat),
		msgs:    make(map[int64]chat.Message),
		byChat:  make(map[int64][]int64),
		refresh: make(map[string]int64),
	}
}

// CreateUser registers a user with an already-hashed password.
func (s *Store) CreateUser(firstName, surname, tag, bio string, passwordHash []byte) (chat.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byTag[tag]; taken {
		return chat.User{}, ErrTagTaken
	}

	s.nextUser++
	user := chat.User{
		UserID:    s.nextUser,
		FirstName: firstName,
		Surname:   surname,
		Tag:       tag,
		Bio:       bio,
	}
	s.users[user.UserID] = &userRecord{user: user, passwordHash: passwordHash}
	s.byTag[tag] = user.UserID
	return user, nil
}

// UserByID looks a user up by id.
func (s *Store) UserByID(id int64) (chat.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.users[id]
	if !ok {
		return chat.User{}, false
	}
	return rec.user, true
}

// UserByTag looks a user up by tag.
func (s *Store) UserByTag(tag string) (chat.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byTag[tag]
	if !ok {
		return chat.User{}, false
	}
	return s.users[id].user, true
}

// Credentials returns the user and password hash for a tag.
func (s *Store) Credentials(tag string) (chat.User, []byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byTag[tag]
	if !ok {
		return chat.User{}, nil, false
	}
	rec := s.users[id]
	return rec.user, rec.passwordHash, true
}

// CreateChat opens a one-to-one conversation between two users.
func (s *Store) CreateChat(creatorID, otherID int64, title string) (chat.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if creatorID == otherID {
		return chat.Chat{}, ErrSelfChat
	}
	for _, c := range s.chats {
		if (c.UserID == creatorID && c.UserID2 == otherID) || (c.UserID == otherID && c.UserID2 == creatorID) {
			return chat.Chat{}, ErrChatExists
		}
	}

	s.nextChat++
	t := title
	c := chat.Chat{
		ConversationID: s.nextChat,
		Title:          &t,
		UserID:         creatorID,
		UserID2:        otherID,
	}
	s.chats[c.ConversationID] = c
	return c, nil
}

// ChatByID looks a conversation up by id.
func (s *Store) ChatByID(id int64) (chat.Chat, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chats[id]
	return c, ok
}

// ChatsFor lists a user's conversations, newest first, with last-message
// previews filled in.
func (s *Store) ChatsFor(userID int64) []chat.Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []chat.Chat
	for _, c := range s.chats {
		if c.UserID != userID && c.UserID2 != userID {
			continue
		}
		if ids := s.byChat[c.ConversationID]; len(ids) > 0 {
			last := s.msgs[ids[len(ids)-1]]
			c.LastMessage = last.Text
			c.LastMessageTime = last.CreatedAt.Format(time.RFC3339)
		}
		out = append(out, c)
	}
	// Ids are assigned monotonically, so descending id is newest first.
	sort.Slice(out, func(i, j int) bool {
		return out[i].ConversationID > out[j].ConversationID
	})
	return out
}

// DeleteChat removes a conversation and its messages.
func (s *Store) DeleteChat(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.chats[id]; !ok {
		return ErrNotFound
	}
	for _, msgID := range s.byChat[id] {
		delete(s.msgs, msgID)
	}
	delete(s.byChat, id)
	delete(s.chats, id)
	return nil
}

// CreateMessage appends a message to a conversation.
func (s *Store) CreateMessage(conversationID, userID int64, text string) (chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.chats[conversationID]; !ok {
		return chat.Message{}, ErrNotFound
	}

	s.nextMsg++
	m := chat.Message{
		MessageID:      s.nextMsg,
		ConversationID: conversationID,
		UserID:         userID,
		Text:           text,
		CreatedAt:      time.Now().UTC(),
		Reactions:      []chat.Reaction{},
	}
	s.msgs[m.MessageID] = m
	s.byChat[conversationID] = append(s.byChat[conversationID], m.MessageID)
	return m, nil
}

// MessageByID looks a message up by id.
func (s *Store) MessageByID(id int64) (chat.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.msgs[id]
	return m, ok
}

// MessagesFor lists a conversation's messages in send order.
func (s *Store) MessagesFor(conversationID int64) []chat.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byChat[conversationID]
	out := make([]chat.Message, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.msgs[id])
	}
	return out
}

// EditMessage replaces a message's text and flags it as edited.
func (s *Store) EditMessage(id int64, text string) (chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.msgs[id]
	if !ok {
		return chat.Message{}, ErrNotFound
	}
	m.Text = text
	m.IsEdited = true
	s.msgs[id] = m
	return m, nil
}

// DeleteMessage removes a message from its conversation.
func (s *Store) DeleteMessage(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.msgs[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.msgs, id)

	ids := s.byChat[m.ConversationID]
	for i, msgID := range ids {
		if msgID == id {
			s.byChat[m.ConversationID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

// AddReaction attaches a reaction to a message. Duplicate reactions from
// the same user are allowed; the client documents the same behavior.
func (s *Store) AddReaction(messageID, userID int64, reactionType chat.ReactionType) (chat.Reaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.msgs[messageID]
	if !ok {
		return chat.Reaction{}, ErrNotFound
	}

	s.nextReaction++
	r := chat.Reaction{
		ReactionID:   s.nextReaction,
		ReactionType: reactionType,
		UserID:       userID,
		MessageID:    messageID,
	}
	m.Reactions = append(m.Reactions, r)
	s.msgs[messageID] = m
	return r, nil
}

// RemoveReaction detaches a reaction and returns it for event fan-out.
func (s *Store) RemoveReaction(messageID, reactionID int64) (chat.Reaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.msgs[messageID]
	if !ok {
		return chat.Reaction{}, ErrNotFound
	}
	for i, r := range m.Reactions {
		if r.ReactionID == reactionID {
			m.Reactions = append(m.Reactions[:i], m.Reactions[i+1:]...)
			s.msgs[messageID] = m
			return r, nil
		}
	}
	return chat.Reaction{}, ErrNotFound
}

// PutRefresh records a refresh token id as valid for a user.
func (s *Store) PutRefresh(jti string, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh[jti] = userID
}

// TakeRefresh consumes a refresh token id; rotation means every id is
// good for exactly one refresh.
func (s *Store) TakeRefresh(jti string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.refresh[jti]
	if ok {
		delete(s.refresh, jti)
	}
	return userID, ok
}

// DropRefresh revokes a refresh token id, if it is still valid.
func (s *Store) DropRefresh(jti string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.refresh, jti)
}

// ChatName is the display name used in push notifications about a
// conversation.
func ChatName(c chat.Chat, senderTag string) string {
	if c.Title != nil && *c.Title != "" {
		return *c.Title
	}
	return fmt.Sprintf("with @%s", senderTag)
}
