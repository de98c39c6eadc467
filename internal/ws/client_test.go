package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vkazakov/chatline/internal/model/event"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// pushServer upgrades each request and writes the given frames in order.
func pushServer(t *testing.T, frames ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		for _, frame := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
		}
		// Keep the connection open until the client hangs up.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				conn.Close()
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func collect(t *testing.T, events <-chan event.Event, n int) []event.Event {
	t.Helper()
	var out []event.Event
	timeout := time.After(3 * time.Second)
	for len(out) < n {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatalf("channel closed after %d of %d events", len(out), n)
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatalf("timed out after %d of %d events", len(out), n)
		}
	}
	return out
}

func TestConnectDeliversEventsInOrder(t *testing.T) {
	srv := pushServer(t,
		`{"type":"chat.created","payload":{"conversation_id":1,"user_id":1,"user_id2":2}}`,
		`{"type":"message.created","payload":{"message_id":10,"conversation_id":1,"user_id":2,"text":"a"}}`,
		`{"type":"message.created","payload":{"message_id":11,"conversation_id":1,"user_id":2,"text":"b"}}`,
	)

	c := New(wsURL(srv), nil)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Disconnect()

	events := collect(t, c.Events(), 3)
	if _, ok := events[0].(event.ChatCreated); !ok {
		t.Fatalf("expected ChatCreated first, got %T", events[0])
	}
	first, ok := events[1].(event.MessageCreated)
	if !ok {
		t.Fatalf("expected MessageCreated, got %T", events[1])
	}
	second := events[2].(event.MessageCreated)
	if first.Message.Text != "a" || second.Message.Text != "b" {
		t.Fatalf("events out of order: %q then %q", first.Message.Text, second.Message.Text)
	}
}

func TestConnectTwiceFails(t *testing.T) {
	srv := pushServer(t)

	c := New(wsURL(srv), nil)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Disconnect()

	if err := c.Connect(context.Background()); err != ErrAlreadyConnected {
		t.Fatalf("expected ErrAlreadyConnected, got %v", err)
	}
}

func TestUnknownFramesAreDeliveredNotDropped(t *testing.T) {
	srv := pushServer(t, `{"type":"user.updated","payload":{"user_id":3}}`)

	c := New(wsURL(srv), nil)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Disconnect()

	events := collect(t, c.Events(), 1)
	unknown, ok := events[0].(event.Unknown)
	if !ok {
		t.Fatalf("expected Unknown, got %T", events[0])
	}
	if unknown.Type != "user.updated" {
		t.Fatalf("unexpected type %q", unknown.Type)
	}
}

func TestMalformedFrameClosesChannel(t *testing.T) {
	srv := pushServer(t, `not json at all`)

	c := New(wsURL(srv), nil)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Disconnect()

	select {
	case _, ok := <-c.Events():
		if ok {
			t.Fatal("expected the channel closed, got an event")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestDisconnectClosesChannel(t *testing.T) {
	srv := pushServer(t)

	c := New(wsURL(srv), nil)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	c.Disconnect()

	select {
	case _, ok := <-c.Events():
		if ok {
			t.Fatal("expected the channel closed, got an event")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestDisconnectUnblocksStalledReadLoop(t *testing.T) {
	// More frames than the event buffer holds, and no consumer: the read
	// loop ends up blocked on delivery. Disconnect must still end it.
	frames := make([]string, 40)
	for i := range frames {
		frames[i] = `{"type":"message.deleted","payload":{"message_id":1}}`
	}
	srv := pushServer(t, frames...)

	base := runtime.NumGoroutine()
	c := New(wsURL(srv), nil)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	c.Disconnect()

	deadline := time.Now().Add(3 * time.Second)
	for runtime.NumGoroutine() > base {
		if time.Now().After(deadline) {
			t.Fatalf("read loop leaked: %d goroutines, started with %d", runtime.NumGoroutine(), base)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestDisconnectWithoutConnect(t *testing.T) {
	c := New("ws://localhost:0", nil)
	c.Disconnect()

	if _, ok := <-c.Events(); ok {
		t.Fatal("expected the channel closed")
	}

	if err := c.Connect(context.Background()); err == nil {
		t.Fatal("expected connect on a closed client to fail")
	}
}

func TestConnectDialFailure(t *testing.T) {
	c := New("ws://127.0.0.1:1/ws", nil)
	if err := c.Connect(context.Background()); err == nil {
		t.Fatal("expected dial error")
	}
}
