package kafka

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Event is the envelope for every message the storefront publishes. The
// Key, usually a session id, decides the partition so one shopper's events
// stay ordered.
type Event struct {
	ID            string          `json:"event_id"`
	Type          string          `json:"event_type"`
	Key           string          `json:"key"`
	Source        string          `json:"source"`
	Version       int             `json:"version"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent marshals data into a fresh envelope.
func NewEvent(eventType, key, source string, data any) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Key:       key,
		Source:    source,
		Version:   1,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	}, nil
}

// Marshal encodes the envelope.
func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeData unmarshals the payload into v.
func (e *Event) DecodeData(v any) error {
	return json.Unmarshal(e.Data, v)
}

// UnmarshalEvent decodes an envelope.
func UnmarshalEvent(b []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
