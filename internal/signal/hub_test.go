package signal

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
)

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(HubConfig{Registry: prometheus.NewRegistry()})
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, srv
}

func dialHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	ev, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return ev
}

func waitForSubscribers(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.SubscriberCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("SubscriberCount() = %d, want %d", hub.SubscriberCount(), want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHub_Greeting(t *testing.T) {
	_, srv := newTestHub(t)

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "Welcome to SockJS!\n" {
		t.Errorf("body = %q, want %q", body, "Welcome to SockJS!\n")
	}
}

func TestHub_BroadcastOrder(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dialHub(t, srv)
	waitForSubscribers(t, hub, 1)

	ctx := context.Background()
	hub.Broadcast(ctx, Invalid())
	hub.Broadcast(ctx, Ok(map[string]string{"main": "main.abc.js"}))

	// A subscriber never observes ok before the invalid that preceded it.
	first := readEvent(t, conn)
	if first.Type != EventInvalid {
		t.Fatalf("first event = %q, want %q", first.Type, EventInvalid)
	}
	second := readEvent(t, conn)
	if second.Type != EventOk {
		t.Fatalf("second event = %q, want %q", second.Type, EventOk)
	}
	if second.Assets["main"] != "main.abc.js" {
		t.Errorf("assets not carried: %+v", second.Assets)
	}
}

func TestHub_SubscriberIsolation(t *testing.T) {
	hub, srv := newTestHub(t)

	healthy := dialHub(t, srv)
	doomed := dialHub(t, srv)
	waitForSubscribers(t, hub, 2)

	doomed.Close()

	// The closed subscriber eventually disappears and must not affect
	// delivery to the healthy one.
	hub.Broadcast(context.Background(), StillOk())
	if ev := readEvent(t, healthy); ev.Type != EventStillOk {
		t.Errorf("event = %q, want %q", ev.Type, EventStillOk)
	}
	waitForSubscribers(t, hub, 1)
}

func TestHub_ReplaysLatestEventToNewSubscribers(t *testing.T) {
	hub, srv := newTestHub(t)

	hub.Broadcast(context.Background(), Errors([]string{"syntax error"}))

	conn := dialHub(t, srv)
	ev := readEvent(t, conn)
	if ev.Type != EventErrors {
		t.Errorf("replayed event = %q, want %q", ev.Type, EventErrors)
	}
	if len(ev.Data) != 1 || ev.Data[0] != "syntax error" {
		t.Errorf("replayed data = %v", ev.Data)
	}
}

func TestHub_CloseDisconnectsSubscribers(t *testing.T) {
	hub := NewHub(HubConfig{Registry: prometheus.NewRegistry()})
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dialHub(t, srv)
	waitForSubscribers(t, hub, 1)

	hub.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected read to fail after hub close")
	}
	if hub.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount() = %d after close", hub.SubscriberCount())
	}
}

func TestHub_BroadcastWithNoSubscribers(t *testing.T) {
	hub, _ := newTestHub(t)
	// Must not panic or block.
	hub.Broadcast(context.Background(), Ok(nil))
}
