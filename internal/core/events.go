package core

import (
	"context"
	"time"

	"github.com/JonMunkholm/creative-hub/internal/logging"
)

// EventType names a registration change published to subscribers.
type EventType string

const (
	EventRegistrationCreated EventType = "registration.created"
	EventRegistrationDeleted EventType = "registration.deleted"
	EventRegistrationsClear  EventType = "registrations.cleared"
)

// Event is the message body published for a registration change.
type Event struct {
	Type            EventType `json:"type"`
	RegistrationIDs []string  `json:"registration_ids,omitempty"`
	Group           string    `json:"group,omitempty"`
	Count           int       `json:"count"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// EventPublisher delivers events to an external broker.
type EventPublisher interface {
	Publish(ctx context.Context, ev Event) error
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// publish sends ev and logs failures. Publishing never fails the action
// that produced the event.
func (s *Service) publish(ctx context.Context, ev Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = s.now().UTC()
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		logging.FromContext(ctx).Warn("event publish failed",
			"type", ev.Type,
			"error", err,
		)
	}
}
