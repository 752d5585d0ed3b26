package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/scanpay/api/internal/receipt"
	"github.com/scanpay/api/internal/ws"
	"github.com/segmentio/kafka-go"
)

type mockWriter struct {
	msgs []kafka.Message
	err  error
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, msgs...)
	return nil
}

func (m *mockWriter) Close() error { return nil }

type mockHub struct {
	rooms []string
	last  ws.Event
}

func (m *mockHub) Broadcast(room string, ev ws.Event) {
	m.rooms = append(m.rooms, room)
	m.last = ev
}

type notifierFunc func(context.Context, receipt.Payload) error

func (f notifierFunc) OrderCommitted(ctx context.Context, p receipt.Payload) error { return f(ctx, p) }

var payload = receipt.Payload{OrderNumber: "order_1", Username: "asha", Total: "90.00", PaymentMode: "ONLINE"}

func TestKafkaPublisher_KeyedByOrderNumber(t *testing.T) {
	w := &mockWriter{}
	if err := NewKafkaPublisher(w).OrderCommitted(context.Background(), payload); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "order_1" {
		t.Errorf("key: got %q", msg.Key)
	}
	var env envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Type != TypeOrderCommitted || env.Payload.Total != "90.00" {
		t.Errorf("envelope: %+v", env)
	}
}

func TestKafkaPublisher_WrapsError(t *testing.T) {
	boom := errors.New("broker down")
	err := NewKafkaPublisher(&mockWriter{err: boom}).OrderCommitted(context.Background(), payload)
	if !errors.Is(err, boom) || !strings.Contains(err.Error(), "order_1") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestHubNotifier_Rooms(t *testing.T) {
	h := &mockHub{}
	if err := NewHubNotifier(h).OrderCommitted(context.Background(), payload); err != nil {
		t.Fatal(err)
	}
	if len(h.rooms) != 2 || h.rooms[0] != ws.AdminRoom || h.rooms[1] != "user:asha" {
		t.Fatalf("rooms: %v", h.rooms)
	}
	if h.last.Type != TypeOrderCommitted {
		t.Errorf("type: %s", h.last.Type)
	}
}

func TestMulti_ContinuesPastFailure(t *testing.T) {
	boom := errors.New("boom")
	called := 0
	m := Multi{
		notifierFunc(func(context.Context, receipt.Payload) error { called++; return boom }),
		nil,
		notifierFunc(func(context.Context, receipt.Payload) error { called++; return nil }),
	}
	err := m.OrderCommitted(context.Background(), payload)
	if called != 2 {
		t.Fatalf("expected both notifiers called, got %d", called)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if err := (Multi{}).OrderCommitted(context.Background(), payload); err != nil {
		t.Fatalf("empty multi: %v", err)
	}
}
