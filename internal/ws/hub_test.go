package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func mockClient(hub *Hub, room string) *Client {
	return &Client{
		hub:  hub,
		room: room,
		send: make(chan []byte, 256),
	}
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func TestUserRoom(t *testing.T) {
	if got := UserRoom("asha"); got != "user:asha" {
		t.Fatalf("got %q", got)
	}
}

func TestHubRegistration(t *testing.T) {
	hub := startHub(t)
	client := mockClient(hub, AdminRoom)

	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	if hub.Count(AdminRoom) != 1 {
		t.Fatal("client not registered in admin room")
	}
}

func TestHubCleanupEmptyRoom(t *testing.T) {
	hub := startHub(t)
	room := UserRoom("asha")
	c1 := mockClient(hub, room)
	c2 := mockClient(hub, room)

	hub.register <- c1
	hub.register <- c2
	time.Sleep(10 * time.Millisecond)
	if n := hub.Count(room); n != 2 {
		t.Fatalf("expected 2 clients, got %d", n)
	}

	hub.unregister <- c1
	time.Sleep(10 * time.Millisecond)
	if n := hub.Count(room); n != 1 {
		t.Fatalf("expected 1 client, got %d", n)
	}

	hub.unregister <- c2
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	if _, ok := hub.rooms[room]; ok {
		t.Fatal("room should be deleted when last client unregisters")
	}
}

func TestBroadcastIsolatesRooms(t *testing.T) {
	hub := startHub(t)
	admin := mockClient(hub, AdminRoom)
	asha := mockClient(hub, UserRoom("asha"))
	ravi := mockClient(hub, UserRoom("ravi"))

	for _, c := range []*Client{admin, asha, ravi} {
		hub.register <- c
	}
	time.Sleep(10 * time.Millisecond)

	payload := json.RawMessage(`{"order_number":"order_1"}`)
	hub.Broadcast(UserRoom("asha"), Event{Type: "order.committed", Payload: payload})

	select {
	case msg := <-asha.send:
		var got Event
		if err := json.Unmarshal(msg, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.Type != "order.committed" || string(got.Payload) != string(payload) {
			t.Errorf("unexpected event %+v", got)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("asha did not receive message")
	}

	for name, c := range map[string]*Client{"admin": admin, "ravi": ravi} {
		select {
		case <-c.send:
			t.Fatalf("%s received a message for another room", name)
		case <-time.After(30 * time.Millisecond):
		}
	}
}

func TestBroadcastDropsFullClient(t *testing.T) {
	hub := startHub(t)
	slow := &Client{hub: hub, room: AdminRoom, send: make(chan []byte)}
	hub.register <- slow
	time.Sleep(10 * time.Millisecond)

	hub.Broadcast(AdminRoom, Event{Type: "order.committed", Payload: json.RawMessage(`{}`)})
	time.Sleep(20 * time.Millisecond)

	if hub.Count(AdminRoom) != 0 {
		t.Fatal("blocked client was not dropped")
	}
	if _, ok := <-slow.send; ok {
		t.Fatal("send channel should be closed")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	c := mockClient(hub, AdminRoom)
	hub.register <- c
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	if _, ok := <-c.send; ok {
		t.Fatal("client channel not closed on shutdown")
	}
}
