// Package events announces committed orders to downstream consumers: the
// Kafka topic read by back-office services and WebSocket rooms watched by
// admins and the shopper's other devices.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/scanpay/api/internal/receipt"
	"github.com/scanpay/api/internal/ws"
	"github.com/segmentio/kafka-go"
)

// TypeOrderCommitted is the event type carried on every channel.
const TypeOrderCommitted = "order.committed"

// Notifier is told about each order after it has been durably committed.
type Notifier interface {
	OrderCommitted(ctx context.Context, p receipt.Payload) error
}

// messageWriter is the subset of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes committed orders to a topic keyed by order number,
// so all events for one order land on the same partition.
type KafkaPublisher struct {
	w messageWriter
}

// NewKafkaWriter builds the writer used in production.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
}

func NewKafkaPublisher(w messageWriter) *KafkaPublisher {
	return &KafkaPublisher{w: w}
}

type envelope struct {
	Type    string          `json:"type"`
	Payload receipt.Payload `json:"payload"`
}

func (k *KafkaPublisher) OrderCommitted(ctx context.Context, p receipt.Payload) error {
	b, err := json.Marshal(envelope{Type: TypeOrderCommitted, Payload: p})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(p.OrderNumber),
		Value: b,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(TypeOrderCommitted)},
		},
	}
	if err := k.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", p.OrderNumber, err)
	}
	return nil
}

func (k *KafkaPublisher) Close() error { return k.w.Close() }

// broadcaster is satisfied by *ws.Hub.
type broadcaster interface {
	Broadcast(room string, event ws.Event)
}

// HubNotifier pushes committed orders to the admin room and to the
// shopper's own room.
type HubNotifier struct {
	hub broadcaster
}

func NewHubNotifier(hub broadcaster) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (h *HubNotifier) OrderCommitted(_ context.Context, p receipt.Payload) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	ev := ws.Event{Type: TypeOrderCommitted, Payload: b}
	h.hub.Broadcast(ws.AdminRoom, ev)
	if p.Username != "" {
		h.hub.Broadcast(ws.UserRoom(p.Username), ev)
	}
	return nil
}

// Multi fans out to every notifier and joins their errors. One failing
// sink never stops the others.
type Multi []Notifier

func (m Multi) OrderCommitted(ctx context.Context, p receipt.Payload) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.OrderCommitted(ctx, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
