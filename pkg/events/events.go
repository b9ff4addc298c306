// Package events carries domain events between services over Kafka.
//
// Every event travels as an Envelope published to the topic named after its
// type. Delivery is at-least-once with no ordering guarantee across keys, so
// handlers must tolerate redelivery.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	PostCreated EventType = "post.created"
	PostDeleted EventType = "post.deleted"
)

// Topic returns the Kafka topic the event type is published to.
func (t EventType) Topic() string {
	return string(t)
}

type Envelope struct {
	EventID   string          `json:"event_id"`
	EventType EventType       `json:"event_type"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

func NewEnvelope(eventType EventType, source string, payload interface{}) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	return Envelope{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}, nil
}

// Decode parses a message value into an envelope.
func Decode(value []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return Envelope{}, fmt.Errorf("failed to decode event envelope: %w", err)
	}
	if env.EventType == "" {
		return Envelope{}, fmt.Errorf("event envelope has no event_type")
	}

	return env, nil
}

// Bind unmarshals the payload into v.
func (e Envelope) Bind(v interface{}) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", e.EventType, err)
	}
	return nil
}

type PostCreatedPayload struct {
	PostID    string    `json:"post_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	MediaIDs  []string  `json:"media_ids"`
	CreatedAt time.Time `json:"created_at"`
}

type PostDeletedPayload struct {
	PostID    string    `json:"post_id"`
	UserID    string    `json:"user_id"`
	MediaIDs  []string  `json:"media_ids"`
	DeletedAt time.Time `json:"deleted_at"`
}
