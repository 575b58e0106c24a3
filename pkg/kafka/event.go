package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/riturajsingh8919/anti-romantic/pkg/logger"
)

// TopicPrefix prefixes every topic owned by the storefront services.
const TopicPrefix = "anti-romantic"

// Header keys set on every published message.
const (
	HeaderEventType     = "event_type"
	HeaderSource        = "source"
	HeaderCorrelationID = "correlation_id"
)

const envelopeVersion = 1

// Topic builds a fully-qualified topic name, e.g. Topic("media",
// "cleanup_requested") is "anti-romantic.media.cleanup_requested".
func Topic(domain, action string) string {
	return fmt.Sprintf("%s.%s.%s", TopicPrefix, domain, action)
}

// Meta identifies an event and the aggregate it describes.
type Meta struct {
	Type          string
	AggregateID   string
	AggregateType string
	Source        string
}

// Event is the envelope written to every topic. EventID is what consumers
// deduplicate on.
type Event struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	Version       int             `json:"version"`
	Timestamp     time.Time       `json:"timestamp"`
	Source        string          `json:"source"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent wraps data in a fresh envelope. The correlation id of ctx, if
// any, is carried so consumers log under the originating request.
func NewEvent(ctx context.Context, meta Meta, data any) (*Event, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", meta.Type, err)
	}

	return &Event{
		EventID:       uuid.NewString(),
		EventType:     meta.Type,
		AggregateID:   meta.AggregateID,
		AggregateType: meta.AggregateType,
		Version:       envelopeVersion,
		Timestamp:     time.Now().UTC(),
		Source:        meta.Source,
		CorrelationID: logger.CorrelationIDFromContext(ctx),
		Data:          payload,
	}, nil
}

// message encodes e for topic, keyed by aggregate so that events of one
// aggregate stay on one partition.
func (e *Event) message(topic string) (kafka.Message, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal event: %w", err)
	}

	headers := []kafka.Header{
		{Key: HeaderEventType, Value: []byte(e.EventType)},
		{Key: HeaderSource, Value: []byte(e.Source)},
	}
	if e.CorrelationID != "" {
		headers = append(headers, kafka.Header{Key: HeaderCorrelationID, Value: []byte(e.CorrelationID)})
	}
	return kafka.Message{Topic: topic, Key: []byte(e.AggregateID), Value: value, Headers: headers}, nil
}

// UnmarshalEvent decodes an envelope. Envelopes without an event type are
// rejected so that foreign payloads on a topic are dead-lettered.
func UnmarshalEvent(data []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if event.EventType == "" {
		return nil, errors.New("decode event: missing event_type")
	}
	return &event, nil
}

// UnmarshalData decodes the payload into target.
func (e *Event) UnmarshalData(target any) error {
	if err := json.Unmarshal(e.Data, target); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.EventType, err)
	}
	return nil
}
