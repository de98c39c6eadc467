package server

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vkazakov/chatline/internal/api"
	"github.com/vkazakov/chatline/internal/config"
	"github.com/vkazakov/chatline/internal/model/chat"
	"github.com/vkazakov/chatline/internal/model/event"
)

func testUser() chat.User {
	return chat.User{UserID: 1, Tag: "alice"}
}

func newTestServer(t *testing.T, accessTTL time.Duration) (*Server, *httptest.Server) {
	t.Helper()
	srv := New(config.ServerConfig{
		TokenSecret: "test-secret",
		AccessTTL:   accessTTL,
		RefreshTTL:  time.Hour,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})
	return srv, ts
}

func newTestAccount(t *testing.T, baseURL, tag string) *api.Client {
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

func TestSignUpAndMe(t *testing.T) {
	_, ts := newTestServer(t, time.Minute)
	client := newTestAccount(t, ts.URL, "alice")

	me, err := client.Me(context.Background())
	require.NoError(t, err)
	require.Equal(t, "alice", me.Tag)
	require.NotZero(t, me.UserID)
}

func TestSignUpDuplicateTag(t *testing.T) {
	_, ts := newTestServer(t, time.Minute)
	newTestAccount(t, ts.URL, "alice")

	client, err := api.New(ts.URL, nil)
	require.NoError(t, err)
	err = client.SignUp(context.Background(), api.SignUpRequest{
		FirstName: "Other",
		Surname:   "Alice",
		Tag:       "alice",
		Password:  "secret123",
	})

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, api.CodeIntegrity, apiErr.Code)
	require.Equal(t, 409, apiErr.Status)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	_, ts := newTestServer(t, time.Minute)
	newTestAccount(t, ts.URL, "alice")

	client, err := api.New(ts.URL, nil)
	require.NoError(t, err)

	err = client.Login(context.Background(), "alice", "wrong")
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, api.CodeIncorrectCreds, apiErr.Code)

	require.NoError(t, client.Login(context.Background(), "alice", "secret123"))
}

func TestCreateChatConflicts(t *testing.T) {
	_, ts := newTestServer(t, time.Minute)
	alice := newTestAccount(t, ts.URL, "alice")
	newTestAccount(t, ts.URL, "bob")

	err := alice.CreateChat(context.Background(), "alice")
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, api.CodeCannotChatYourself, apiErr.Code)

	require.NoError(t, alice.CreateChat(context.Background(), "bob"))

	err = alice.CreateChat(context.Background(), "bob")
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, api.CodeChatAlreadyExists, apiErr.Code)

	err = alice.CreateChat(context.Background(), "nobody")
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, api.CodeNotFound, apiErr.Code)
}

func TestMessageFlow(t *testing.T) {
	_, ts := newTestServer(t, time.Minute)
	alice := newTestAccount(t, ts.URL, "alice")
	bob := newTestAccount(t, ts.URL, "bob")
	ctx := context.Background()

	require.NoError(t, alice.CreateChat(ctx, "bob"))
	chats, err := alice.Chats(ctx)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	chatID := chats[0].ConversationID

	require.NoError(t, alice.SendMessage(ctx, chatID, "hello"))
	msgs, err := bob.Messages(ctx, chatID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "hello", msgs[0].Text)
	require.False(t, msgs[0].IsEdited)

	// Bob cannot edit Alice's message.
	err = bob.EditMessage(ctx, chatID, msgs[0].MessageID, "hacked")
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, api.CodeNoAccess, apiErr.Code)

	require.NoError(t, alice.EditMessage(ctx, chatID, msgs[0].MessageID, "hello bob"))
	msgs, err = alice.Messages(ctx, chatID)
	require.NoError(t, err)
	require.Equal(t, "hello bob", msgs[0].Text)
	require.True(t, msgs[0].IsEdited)

	// Chat list previews pick up the last message.
	chats, err = bob.Chats(ctx)
	require.NoError(t, err)
	require.Equal(t, "hello bob", chats[0].LastMessage)

	require.NoError(t, alice.DeleteMessage(ctx, chatID, msgs[0].MessageID))
	msgs, err = alice.Messages(ctx, chatID)
	require.NoError(t, err)
	require.Empty(t, msgs)
}

func TestReactionFlow(t *testing.T) {
	_, ts := newTestServer(t, time.Minute)
	alice := newTestAccount(t, ts.URL, "alice")
	bob := newTestAccount(t, ts.URL, "bob")
	ctx := context.Background()

	require.NoError(t, alice.CreateChat(ctx, "bob"))
	chats, err := alice.Chats(ctx)
	require.NoError(t, err)
	chatID := chats[0].ConversationID
	require.NoError(t, alice.SendMessage(ctx, chatID, "hello"))

	msgs, err := bob.Messages(ctx, chatID)
	require.NoError(t, err)
	msgID := msgs[0].MessageID

	require.NoError(t, bob.AddReaction(ctx, msgID, "heart"))
	msgs, err = alice.Messages(ctx, chatID)
	require.NoError(t, err)
	require.Len(t, msgs[0].Reactions, 1)

	require.NoError(t, bob.RemoveReaction(ctx, msgID, msgs[0].Reactions[0].ReactionID))
	msgs, err = alice.Messages(ctx, chatID)
	require.NoError(t, err)
	require.Empty(t, msgs[0].Reactions)

	err = bob.AddReaction(ctx, msgID, "thumbsdown")
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, api.CodeBadValue, apiErr.Code)
}

func TestOutsiderCannotTouchChat(t *testing.T) {
	_, ts := newTestServer(t, time.Minute)
	alice := newTestAccount(t, ts.URL, "alice")
	newTestAccount(t, ts.URL, "bob")
	eve := newTestAccount(t, ts.URL, "eve")
	ctx := context.Background()

	require.NoError(t, alice.CreateChat(ctx, "bob"))
	chats, err := alice.Chats(ctx)
	require.NoError(t, err)
	chatID := chats[0].ConversationID

	// Eve holds a valid session, so her 403 triggers one wasted refresh
	// cycle and the retry's 403 surfaces as a plain domain error.
	_, err = eve.Messages(ctx, chatID)
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, api.CodeNoAccess, apiErr.Code)

	err = eve.SendMessage(ctx, chatID, "let me in")
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, api.CodeNoAccess, apiErr.Code)
}

func TestExpiredAccessTokenRefreshCycle(t *testing.T) {
	_, ts := newTestServer(t, 100*time.Millisecond)
	client := newTestAccount(t, ts.URL, "alice")
	ctx := context.Background()

	time.Sleep(150 * time.Millisecond)

	// The access token is expired; the protected call must transparently
	// refresh, rotate the cookies and succeed on the retry.
	me, err := client.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, "alice", me.Tag)
}

func TestLogoutKillsSession(t *testing.T) {
	_, ts := newTestServer(t, time.Minute)
	client := newTestAccount(t, ts.URL, "alice")
	ctx := context.Background()

	require.NoError(t, client.Logout(ctx))

	_, err := client.Me(ctx)
	require.ErrorIs(t, err, api.ErrUnauthorized)
}

func TestDeleteChatRemovesMessages(t *testing.T) {
	srv, ts := newTestServer(t, time.Minute)
	alice := newTestAccount(t, ts.URL, "alice")
	newTestAccount(t, ts.URL, "bob")
	ctx := context.Background()

	require.NoError(t, alice.CreateChat(ctx, "bob"))
	chats, err := alice.Chats(ctx)
	require.NoError(t, err)
	chatID := chats[0].ConversationID
	require.NoError(t, alice.SendMessage(ctx, chatID, "hello"))

	require.NoError(t, alice.DeleteChat(ctx, chatID))
	chats, err = alice.Chats(ctx)
	require.NoError(t, err)
	require.Empty(t, chats)

	_, ok := srv.Store().ChatByID(chatID)
	require.False(t, ok)
}

func TestChatsForNewestFirst(t *testing.T) {
	store := NewStore()
	alice, err := store.CreateUser("Alice", "A", "alice", "", []byte("x"))
	require.NoError(t, err)

	for i := 0; i < 12; i++ {
		other, err := store.CreateUser("User", "N", fmt.Sprintf("user%d", i), "", []byte("x"))
		require.NoError(t, err)
		_, err = store.CreateChat(alice.UserID, other.UserID, "t")
		require.NoError(t, err)
	}

	chats := store.ChatsFor(alice.UserID)
	require.Len(t, chats, 12)
	for i := 1; i < len(chats); i++ {
		require.Greater(t, chats[i-1].ConversationID, chats[i].ConversationID,
			"chat list must be newest first")
	}
}

func TestHubSendWithoutConnections(t *testing.T) {
	h := NewHub()
	h.Send(42, event.TypeNotification, map[string]string{"text": "hi"})
	// With nobody connected the payload is never encoded, so even an
	// unmarshalable one is a silent no-op.
	h.Send(42, event.TypeNotification, make(chan int))
}

func TestRefreshTokenIsSingleUse(t *testing.T) {
	store := NewStore()
	store.PutRefresh("jti-1", 7)

	userID, ok := store.TakeRefresh("jti-1")
	require.True(t, ok)
	require.Equal(t, int64(7), userID)

	_, ok = store.TakeRefresh("jti-1")
	require.False(t, ok, "a refresh token id is good for exactly one refresh")
}

func TestAuthenticatorExpiry(t *testing.T) {
	auth := NewAuthenticator("secret", -time.Second, time.Hour)
	token, err := auth.Access(testUser())
	require.NoError(t, err)

	_, err = auth.Validate(token)
	require.ErrorIs(t, err, ErrExpiredToken)

	other := NewAuthenticator("other-secret", time.Minute, time.Hour)
	good, err := other.Access(testUser())
	require.NoError(t, err)
	_, err = auth.Validate(good)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrExpiredToken)
}
