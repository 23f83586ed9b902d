// Package kafka publishes audit events to a Kafka topic as JSON so
// downstream SIEM and archival consumers can subscribe.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	audit "amlguard/pkg/platform/audit"
)

// Producer is the subset of the platform Kafka producer the sink needs.
type Producer interface {
	Produce(ctx context.Context, topic string, key, value []byte) error
}

type Sink struct {
	producer Producer
	topic    string
}

func NewSink(producer Producer, topic string) *Sink {
	return &Sink{producer: producer, topic: topic}
}

type message struct {
	Timestamp    time.Time `json:"timestamp"`
	Action       string    `json:"action"`
	Category     string    `json:"category"`
	Severity     string    `json:"severity"`
	Outcome      string    `json:"outcome"`
	ActorID      string    `json:"actor_id,omitempty"`
	ActorName    string    `json:"actor_name,omitempty"`
	ActorRole    string    `json:"actor_role,omitempty"`
	ResourceType string    `json:"resource_type,omitempty"`
	ResourceID   string    `json:"resource_id,omitempty"`
	Details      string    `json:"details,omitempty"`
	RequestID    string    `json:"request_id,omitempty"`
	IP           string    `json:"ip,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
}

// Append encodes the event and produces it keyed by resource, so events for
// one resource stay ordered within a partition.
func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	value, err := json.Marshal(message{
		Timestamp:    event.Timestamp,
		Action:       event.Action,
		Category:     string(event.Category),
		Severity:     string(event.Severity),
		Outcome:      string(event.Outcome),
		ActorID:      event.ActorID,
		ActorName:    event.ActorName,
		ActorRole:    event.ActorRole,
		ResourceType: event.ResourceType,
		ResourceID:   event.ResourceID,
		Details:      event.Details,
		RequestID:    event.RequestID,
		IP:           event.IP,
		UserAgent:    event.UserAgent,
	})
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	key := event.ResourceType + ":" + event.ResourceID
	return s.producer.Produce(ctx, s.topic, []byte(key), value)
}
