package events

import (
	"encoding/json"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/JonMunkholm/creative-hub/internal/core"
)

func TestBuildMessage(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	ev := core.Event{
		Type:            core.EventRegistrationCreated,
		RegistrationIDs: []string{"b6f1c1a2-0000-4000-8000-000000000001"},
		Group:           "Pulkit",
		Count:           1,
		OccurredAt:      at,
	}

	msg, err := buildMessage(ev)
	if err != nil {
		t.Fatalf("buildMessage: %v", err)
	}

	if msg.ContentType != "application/json" {
		t.Errorf("ContentType = %q, want application/json", msg.ContentType)
	}
	if msg.DeliveryMode != amqp.Persistent {
		t.Errorf("DeliveryMode = %d, want %d", msg.DeliveryMode, amqp.Persistent)
	}
	if msg.Type != "registration.created" {
		t.Errorf("Type = %q, want registration.created", msg.Type)
	}
	if !msg.Timestamp.Equal(at) {
		t.Errorf("Timestamp = %v, want %v", msg.Timestamp, at)
	}
	if msg.MessageId == "" {
		t.Error("MessageId is empty")
	}

	var body map[string]any
	if err := json.Unmarshal(msg.Body, &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if body["type"] != "registration.created" {
		t.Errorf("body type = %v", body["type"])
	}
	if body["group"] != "Pulkit" {
		t.Errorf("body group = %v", body["group"])
	}
}

func TestBuildMessage_FillsTimestamp(t *testing.T) {
	msg, err := buildMessage(core.Event{Type: core.EventRegistrationsClear, Count: 3})
	if err != nil {
		t.Fatalf("buildMessage: %v", err)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp not set for event without OccurredAt")
	}
}
