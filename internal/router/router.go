// Package router dispatches push events into the domain stores. Dispatch
// is total and synchronous: exactly one branch runs per event, in the
// order the connection manager delivered them, with no queuing or
// batching.
package router

import (
	"context"
	"fmt"
	"log"

	"github.com/vkazakov/chatline/internal/model/event"
	"github.com/vkazakov/chatline/internal/store"
)

// Notification message text is cut at this many characters before display.
const maxNotificationText = 100

// Router routes decoded push events to their single downstream action.
type Router struct {
	chats         *store.ChatStore
	messages      *store.MessageStore
	notifications *store.NotificationStore
}

// New wires a router to the stores it dispatches into.
func New(chats *store.ChatStore, messages *store.MessageStore, notifications *store.NotificationStore) *Router {
	return &Router{
		chats:         chats,
		messages:      messages,
		notifications: notifications,
	}
}

// Run drains events in order until the channel closes or ctx is cancelled.
func (r *Router) Run(ctx context.Context, events <-chan event.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			r.Dispatch(ev)
		}
	}
}

// Dispatch applies one push event. Unknown event types are logged and
// ignored so new server events never crash the client.
func (r *Router) Dispatch(ev event.Event) {
	switch ev := ev.(type) {
	case event.ChatCreated:
		r.chats.Add(ev.Chat)

	case event.ChatDeleted:
		r.chats.Remove(ev.ConversationID)

	case event.MessageCreated, event.MessageUpdated, event.MessageDeleted,
		event.ReactionAdded, event.ReactionRemoved:
		r.messages.Apply(ev)

	case event.Notification:
		r.notify(ev)

	default:
		log.Printf("[router] unhandled event type %q", ev.Kind())
	}
}

func (r *Router) notify(n event.Notification) {
	switch n.EventType {
	case event.NotificationNewMessage:
		text := truncate(n.Text, maxNotificationText)
		r.notifications.ShowInfo(fmt.Sprintf("New message in chat %s from @%s: %s", n.ChatName, n.SenderTag, text))

	case event.NotificationNewReaction:
		r.notifications.ShowInfo(fmt.Sprintf("New reaction in chat %s from @%s: %s", n.ChatName, n.SenderTag, n.ReactionType.Emoji()))

	default:
		log.Printf("[router] unhandled notification subtype %q", n.EventType)
	}
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
