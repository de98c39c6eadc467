package session

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vkazakov/chatline/internal/api"
	"github.com/vkazakov/chatline/internal/config"
	"github.com/vkazakov/chatline/internal/server"
)

func newBackend(t *testing.T) (baseURL, wsURL string) {
	t.Helper()
	srv := server.New(config.ServerConfig{
		TokenSecret: "test-secret",
		AccessTTL:   time.Minute,
		RefreshTTL:  time.Hour,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})
	return ts.URL, "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func newAccount(t *testing.T, baseURL, tag string) *api.Client {
	t.Helper()
	client, err := api.New(baseURL, nil, api.WithRefreshGrace(time.Millisecond))
	require.NoError(t, err)
	err = client.SignUp(context.Background(), api.SignUpRequest{
		FirstName: "Test",
		Surname:   "User",
		Tag:       tag,
		Password:  "secret123",
	})
	require.NoError(t, err)
	return client
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSessionStartLoadsProfileAndChats(t *testing.T) {
	baseURL, wsURL := newBackend(t)
	alice := newAccount(t, baseURL, "alice")

	sess := New(alice, wsURL)
	require.NoError(t, sess.Start(context.Background()))
	defer sess.Close()

	me := sess.User.Current()
	require.NotNil(t, me)
	require.Equal(t, "alice", me.Tag)
	require.Empty(t, sess.Chats.Chats())
}

func TestSessionReceivesChatCreatedPush(t *testing.T) {
	baseURL, wsURL := newBackend(t)
	alice := newAccount(t, baseURL, "alice")
	bob := newAccount(t, baseURL, "bob")

	sess := New(alice, wsURL)
	require.NoError(t, sess.Start(context.Background()))
	defer sess.Close()

	// Bob opens the conversation; Alice's store picks it up purely from
	// the push channel.
	require.NoError(t, bob.CreateChat(context.Background(), "alice"))

	waitFor(t, "chat.created push", func() bool {
		return len(sess.Chats.Chats()) == 1
	})
	c := sess.Chats.Chats()[0]
	require.NotNil(t, c.Title)
	require.Equal(t, "bob-alice", *c.Title)
}

func TestSessionReceivesMessagesInOrder(t *testing.T) {
	baseURL, wsURL := newBackend(t)
	alice := newAccount(t, baseURL, "alice")
	bob := newAccount(t, baseURL, "bob")
	ctx := context.Background()

	sess := New(alice, wsURL)
	require.NoError(t, sess.Start(ctx))
	defer sess.Close()

	require.NoError(t, bob.CreateChat(ctx, "alice"))
	waitFor(t, "chat.created push", func() bool { return len(sess.Chats.Chats()) == 1 })
	chatID := sess.Chats.Chats()[0].ConversationID

	require.NoError(t, bob.SendMessage(ctx, chatID, "first"))
	require.NoError(t, bob.SendMessage(ctx, chatID, "second"))
	require.NoError(t, bob.SendMessage(ctx, chatID, "third"))

	waitFor(t, "message.created pushes", func() bool {
		return len(sess.Messages.Messages()) == 3
	})
	msgs := sess.Messages.Messages()
	require.Equal(t, "first", msgs[0].Text)
	require.Equal(t, "second", msgs[1].Text)
	require.Equal(t, "third", msgs[2].Text)

	// The sender side notification landed too.
	waitFor(t, "notification push", func() bool {
		return len(sess.Notifications.Items()) >= 1
	})
	require.Contains(t, sess.Notifications.Items()[0].Message, "from @bob")
}

func TestSessionAppliesEditsAndDeletes(t *testing.T) {
	baseURL, wsURL := newBackend(t)
	alice := newAccount(t, baseURL, "alice")
	bob := newAccount(t, baseURL, "bob")
	ctx := context.Background()

	sess := New(alice, wsURL)
	require.NoError(t, sess.Start(ctx))
	defer sess.Close()

	require.NoError(t, bob.CreateChat(ctx, "alice"))
	waitFor(t, "chat.created push", func() bool { return len(sess.Chats.Chats()) == 1 })
	chatID := sess.Chats.Chats()[0].ConversationID

	require.NoError(t, bob.SendMessage(ctx, chatID, "helo"))
	waitFor(t, "message.created push", func() bool { return len(sess.Messages.Messages()) == 1 })
	msgID := sess.Messages.Messages()[0].MessageID

	require.NoError(t, bob.EditMessage(ctx, chatID, msgID, "hello"))
	waitFor(t, "message.updated push", func() bool {
		msgs := sess.Messages.Messages()
		return len(msgs) == 1 && msgs[0].Text == "hello" && msgs[0].IsEdited
	})

	require.NoError(t, bob.DeleteMessage(ctx, chatID, msgID))
	waitFor(t, "message.deleted push", func() bool {
		return len(sess.Messages.Messages()) == 0
	})
}

func TestSessionChatDeletedClearsSelection(t *testing.T) {
	baseURL, wsURL := newBackend(t)
	alice := newAccount(t, baseURL, "alice")
	bob := newAccount(t, baseURL, "bob")
	ctx := context.Background()

	sess := New(alice, wsURL)
	require.NoError(t, sess.Start(ctx))
	defer sess.Close()

	require.NoError(t, bob.CreateChat(ctx, "alice"))
	waitFor(t, "chat.created push", func() bool { return len(sess.Chats.Chats()) == 1 })
	chatID := sess.Chats.Chats()[0].ConversationID
	sess.Chats.Select(chatID)

	require.NoError(t, bob.DeleteChat(ctx, chatID))
	waitFor(t, "chat.deleted push", func() bool { return len(sess.Chats.Chats()) == 0 })

	_, selected := sess.Chats.Selected()
	require.False(t, selected, "deleting the selected chat must clear the selection")
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	baseURL, wsURL := newBackend(t)
	alice := newAccount(t, baseURL, "alice")

	sess := New(alice, wsURL)
	require.NoError(t, sess.Start(context.Background()))

	sess.Close()
	sess.Close()
}
