// Package session ties the sync core together for the lifetime of one
// chat screen: stores constructed at mount, push channel connected, event
// router draining, everything torn down on unmount.
package session

import (
	"context"

	"github.com/vkazakov/chatline/internal/api"
	"github.com/vkazakov/chatline/internal/router"
	"github.com/vkazakov/chatline/internal/store"
	"github.com/vkazakov/chatline/internal/ws"
)

// Session owns one mount's worth of stores and the push connection. A
// remount means a fresh Session; instances are not reusable after Close.
type Session struct {
	Chats         *store.ChatStore
	Messages      *store.MessageStore
	User          *store.UserStore
	Notifications *store.NotificationStore

	conn   *ws.Client
	router *router.Router
	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a session over an authenticated client and the push endpoint
// URL. Nothing is loaded or connected until Start.
func New(client *api.Client, wsURL string) *Session {
	chats := store.NewChatStore(client)
	messages := store.NewMessageStore(client)
	user := store.NewUserStore(client)
	notifications := store.NewNotificationStore()

	return &Session{
		Chats:         chats,
		Messages:      messages,
		User:          user,
		Notifications: notifications,
		conn:          ws.New(wsURL, client.Jar()),
		router:        router.New(chats, messages, notifications),
		done:          make(chan struct{}),
	}
}

// Start performs the mount sequence: load the profile and chat list, open
// the push channel, start draining events.
func (s *Session) Start(ctx context.Context) error {
	if err := s.User.Refresh(ctx); err != nil {
		return err
	}
	if err := s.Chats.Refresh(ctx); err != nil {
		return err
	}
	if err := s.conn.Connect(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go func() {
		defer close(s.done)
		s.router.Run(runCtx, s.conn.Events())
	}()
	return nil
}

// Router exposes the event router for callers that feed events from
// elsewhere, primarily tests.
func (s *Session) Router() *router.Router { return s.router }

// Close tears the session down: disconnects the push channel, stops the
// router and closes the stores so late responses are discarded. Safe to
// call more than once.
func (s *Session) Close() {
	s.conn.Disconnect()
	if s.cancel != nil {
		s.cancel()
		<-s.done
		s.cancel = nil
	}
	s.Chats.Close()
	s.Messages.Close()
	s.User.Close()
	s.Notifications.Close()
}
