package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Event is the envelope every catalog message is wrapped in.
type Event struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	AggregateID   string            `json:"aggregate_id"`
	AggregateType string            `json:"aggregate_type"`
	Version       int               `json:"version"`
	Timestamp     time.Time         `json:"timestamp"`
	Source        string            `json:"source"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Data          json.RawMessage   `json:"data"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// NewEvent wraps data in an envelope with a fresh id and a UTC timestamp.
func NewEvent(eventType, aggregateID, aggregateType, source string, data any) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		Version:       1,
		Timestamp:     time.Now().UTC(),
		Source:        source,
		Data:          raw,
		Metadata:      make(map[string]string),
	}, nil
}

// WithCorrelationID sets the correlation id and returns the event.
func (e *Event) WithCorrelationID(id string) *Event {
	e.CorrelationID = id
	return e
}

// WithMetadata adds one metadata entry and returns the event.
func (e *Event) WithMetadata(key, value string) *Event {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// Marshal serializes the event to JSON.
func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Headers returns the kafka headers consumers can route on without decoding
// the payload.
func (e *Event) Headers() []kafka.Header {
	headers := []kafka.Header{
		{Key: "event_id", Value: []byte(e.EventID)},
		{Key: "event_type", Value: []byte(e.EventType)},
		{Key: "source", Value: []byte(e.Source)},
	}
	if e.CorrelationID != "" {
		headers = append(headers, kafka.Header{Key: "correlation_id", Value: []byte(e.CorrelationID)})
	}
	return headers
}

// UnmarshalEvent decodes an envelope.
func UnmarshalEvent(data []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// UnmarshalData decodes the payload into target.
func (e *Event) UnmarshalData(target any) error {
	return json.Unmarshal(e.Data, target)
}
