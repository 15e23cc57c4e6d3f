package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type stubStore struct {
	err  error
	last Event
}

func (s *stubStore) InsertEvent(_ context.Context, topic string, aggregateID uuid.UUID, payload []byte) (Event, error) {
	if s.err != nil {
		return Event{}, s.err
	}
	s.last = Event{
		ID:          uuid.New(),
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     payload,
		OccurredAt:  time.Now(),
	}
	return s.last, nil
}

type stubNotifier struct {
	err error
	got []Event
}

func (n *stubNotifier) Notify(_ context.Context, event Event) error {
	n.got = append(n.got, event)
	return n.err
}

func TestEmitPersistsAndNotifies(t *testing.T) {
	store := &stubStore{}
	notifier := &stubNotifier{}
	bus := &Bus{Store: store, Notifiers: []Notifier{notifier}}

	aggregate := uuid.New()
	ev, err := bus.Emit(context.Background(), TopicCouponRedeemed, aggregate, map[string]any{"amount": 450})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Topic != TopicCouponRedeemed || ev.AggregateID != aggregate {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if len(notifier.got) != 1 {
		t.Fatalf("expected one notification, got %d", len(notifier.got))
	}
	var payload map[string]any
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		t.Fatalf("payload not json: %v", err)
	}
	if payload["amount"] != float64(450) {
		t.Fatalf("unexpected payload %#v", payload)
	}
}

func TestEmitNotifierFailureKeepsEvent(t *testing.T) {
	store := &stubStore{}
	notifier := &stubNotifier{err: errors.New("downstream down")}
	bus := &Bus{Store: store, Notifiers: []Notifier{notifier}}

	ev, err := bus.Emit(context.Background(), TopicDiscountApplied, uuid.New(), nil)
	if err == nil {
		t.Fatal("expected joined notifier error")
	}
	if ev.ID == uuid.Nil {
		t.Fatal("expected event to be persisted despite notifier failure")
	}
}

func TestEmitValidation(t *testing.T) {
	bus := &Bus{Store: &stubStore{}}
	if _, err := bus.Emit(context.Background(), "", uuid.New(), nil); err == nil {
		t.Fatal("expected error for empty topic")
	}
	if _, err := bus.Emit(context.Background(), TopicCouponRedeemed, uuid.Nil, nil); err == nil {
		t.Fatal("expected error for nil aggregate id")
	}
	if _, err := bus.Emit(context.Background(), TopicCouponRedeemed, uuid.New(), []byte("not json")); err == nil {
		t.Fatal("expected error for invalid raw payload")
	}
}

func TestEmitStoreFailure(t *testing.T) {
	bus := &Bus{Store: &stubStore{err: errors.New("insert failed")}}
	if _, err := bus.Emit(context.Background(), TopicCouponRedeemed, uuid.New(), nil); err == nil {
		t.Fatal("expected persistence error to surface")
	}
}
