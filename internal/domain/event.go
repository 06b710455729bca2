package domain

import (
	"context"
	"encoding/json"
	"time"
)

// EventType identifies a bus event.
type EventType string

const (
	EventAudit        EventType = "audit"
	EventPackRegister EventType = "pack.register"
)

// Event is a single bus message.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// EventHandler consumes one event.
type EventHandler func(ctx context.Context, event Event)

// EventBus fans events out to subscribers.
type EventBus interface {
	Publish(ctx context.Context, event Event)
	Subscribe(eventType EventType, handler EventHandler) func()
	SubscribeAll(handler EventHandler) func()
}
