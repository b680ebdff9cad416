package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

type fakePublisher struct {
	channel string
	data    []byte
	attrs   map[string]string
	err     error
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	f.channel = channel
	f.data = data
	f.attrs = attrs
	return "msg-1", f.err
}

func TestUserRegisteredPublishes(t *testing.T) {
	publisher := &fakePublisher{}
	events := NewEvents(publisher, nil)

	event := RegisteredEvent{
		UserID:       42,
		Email:        "a@x.com",
		Name:         "Ada",
		Role:         "ALUMNI",
		Batch:        "2019",
		Organisation: "Acme",
		RegisteredAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
	events.UserRegistered(context.Background(), event)

	if publisher.channel != RegisteredChannel {
		t.Fatalf("expected channel %q, got %q", RegisteredChannel, publisher.channel)
	}
	if publisher.attrs["role"] != "ALUMNI" {
		t.Fatalf("expected role attribute, got %v", publisher.attrs)
	}

	var got RegisteredEvent
	if err := json.Unmarshal(publisher.data, &got); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if got != event {
		t.Fatalf("payload mismatch:\n got %+v\nwant %+v", got, event)
	}
}

func TestUserRegisteredBestEffort(t *testing.T) {
	publisher := &fakePublisher{err: errors.New("broker down")}
	events := NewEvents(publisher, nil)

	// Must not panic or propagate the broker failure.
	events.UserRegistered(context.Background(), RegisteredEvent{UserID: 1})
}

func TestUserRegisteredNoBroker(t *testing.T) {
	var events *Events
	events.UserRegistered(context.Background(), RegisteredEvent{UserID: 1})

	NewEvents(nil, nil).UserRegistered(context.Background(), RegisteredEvent{UserID: 1})
}
