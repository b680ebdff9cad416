package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// RegisteredChannel is the channel new-registration events go out on.
const RegisteredChannel = "alumni.registered"

// Publisher is the broker seam; mq.MQ satisfies it.
type Publisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// RegisteredEvent is the payload published when a user registers.
type RegisteredEvent struct {
	UserID       int64     `json:"user_id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	Batch        string    `json:"batch"`
	Organisation string    `json:"organisation,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Events publishes domain events best-effort: broker failures are
// logged and never fail the request that produced them.
type Events struct {
	publisher Publisher
	logger    *slog.Logger
}

func NewEvents(publisher Publisher, logger *slog.Logger) *Events {
	if logger == nil {
		logger = slog.Default()
	}
	return &Events{publisher: publisher, logger: logger}
}

// UserRegistered emits a RegisteredEvent. A nil receiver or missing
// broker is a no-op so callers never need to guard.
func (e *Events) UserRegistered(ctx context.Context, event RegisteredEvent) {
	if e == nil || e.publisher == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		e.logger.Error("marshal registered event", "err", err)
		return
	}

	if _, err := e.publisher.Publish(ctx, RegisteredChannel, data, map[string]string{
		"role": event.Role,
	}); err != nil {
		e.logger.Error("publish registered event", "err", err, "user_id", event.UserID)
	}
}
