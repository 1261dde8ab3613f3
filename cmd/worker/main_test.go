package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/artinalushaku/onlineStore-sub000/internal/store/rabbitmq"
	amqp "github.com/rabbitmq/amqp091-go"
)

type fakeCounters struct {
	incremented []uint64
	reset       []uint64
	err         error
}

func (f *fakeCounters) IncrUnread(ctx context.Context, shopperID uint64) error {
	_ = ctx
	f.incremented = append(f.incremented, shopperID)
	return f.err
}

func (f *fakeCounters) ResetUnread(ctx context.Context, shopperID uint64) error {
	_ = ctx
	f.reset = append(f.reset, shopperID)
	return f.err
}

type fakeAcker struct {
	acked  int
	nacked int
}

func (f *fakeAcker) Ack(tag uint64, multiple bool) error {
	f.acked++
	return nil
}

func (f *fakeAcker) Nack(tag uint64, multiple, requeue bool) error {
	if requeue {
		return errors.New("worker must dead-letter, not requeue")
	}
	f.nacked++
	return nil
}

func (f *fakeAcker) Reject(tag uint64, requeue bool) error {
	return errors.New("unexpected reject")
}

func delivery(t *testing.T, acker *fakeAcker, ev rabbitmq.ChatEvent) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return amqp.Delivery{Acknowledger: acker, DeliveryTag: 1, Body: body}
}

func TestHandle_ShopperMessageIncrementsUnread(t *testing.T) {
	counters := &fakeCounters{}
	acker := &fakeAcker{}

	handle(context.Background(), counters, delivery(t, acker, rabbitmq.ChatEvent{
		EventID:   "ev-1",
		Type:      rabbitmq.EventMessageStored,
		ShopperID: 5,
		SenderID:  5,
	}))

	if len(counters.incremented) != 1 || counters.incremented[0] != 5 {
		t.Fatalf("expected unread increment for shopper 5, got %v", counters.incremented)
	}
	if acker.acked != 1 || acker.nacked != 0 {
		t.Fatalf("expected ack, got acked=%d nacked=%d", acker.acked, acker.nacked)
	}
}

func TestHandle_StaffMessageDoesNotIncrement(t *testing.T) {
	counters := &fakeCounters{}
	acker := &fakeAcker{}

	handle(context.Background(), counters, delivery(t, acker, rabbitmq.ChatEvent{
		EventID:    "ev-2",
		Type:       rabbitmq.EventMessageStored,
		ShopperID:  5,
		SenderID:   42,
		ReceiverID: 5,
	}))

	if len(counters.incremented) != 0 {
		t.Fatalf("staff replies must not count as unread, got %v", counters.incremented)
	}
	if acker.acked != 1 {
		t.Fatalf("expected ack, got acked=%d", acker.acked)
	}
}

func TestHandle_DeleteResetsUnread(t *testing.T) {
	counters := &fakeCounters{}
	acker := &fakeAcker{}

	handle(context.Background(), counters, delivery(t, acker, rabbitmq.ChatEvent{
		EventID:   "ev-3",
		Type:      rabbitmq.EventConversationDeleted,
		ShopperID: 5,
	}))

	if len(counters.reset) != 1 || counters.reset[0] != 5 {
		t.Fatalf("expected unread reset for shopper 5, got %v", counters.reset)
	}
	if acker.acked != 1 {
		t.Fatalf("expected ack, got acked=%d", acker.acked)
	}
}

func TestHandle_BadPayloadDeadLetters(t *testing.T) {
	counters := &fakeCounters{}
	acker := &fakeAcker{}

	handle(context.Background(), counters, amqp.Delivery{
		Acknowledger: acker,
		DeliveryTag:  1,
		Body:         []byte("not json"),
	})

	if acker.nacked != 1 || acker.acked != 0 {
		t.Fatalf("expected dead-letter nack, got acked=%d nacked=%d", acker.acked, acker.nacked)
	}
	if len(counters.incremented)+len(counters.reset) != 0 {
		t.Fatalf("counters must not move for an unparseable event")
	}
}

func TestHandle_CounterFailureDeadLetters(t *testing.T) {
	counters := &fakeCounters{err: errors.New("redis down")}
	acker := &fakeAcker{}

	handle(context.Background(), counters, delivery(t, acker, rabbitmq.ChatEvent{
		EventID:   "ev-4",
		Type:      rabbitmq.EventMessageStored,
		ShopperID: 5,
		SenderID:  5,
	}))

	if acker.nacked != 1 || acker.acked != 0 {
		t.Fatalf("expected dead-letter nack on counter failure, got acked=%d nacked=%d", acker.acked, acker.nacked)
	}
}
