package events

import (
	"time"

	"github.com/google/uuid"
)

// Event is a planning fact appended to a stream. Streams are keyed by the
// aggregate id (BOM, product, run or recommendation).
type Event interface {
	ID() string
	Type() string
	StreamID() string
	Data() interface{}
	Timestamp() time.Time
	Version() int
}

type EventHandler interface {
	Handle(event Event) error
	CanHandle(eventType string) bool
}

type EventStore interface {
	AppendEvent(streamID string, event Event) error
	ReadEvents(streamID string, fromVersion int) ([]Event, error)
	ReadAllEvents(fromPosition int) ([]Event, error)
	Subscribe(eventTypes []string, handler EventHandler) error
	Unsubscribe(handler EventHandler) error
}

// Record is the stored form of an event. Version is assigned by the store.
type Record struct {
	EventID    string      `json:"id"`
	EventType  string      `json:"type"`
	Stream     string      `json:"stream_id"`
	Payload    interface{} `json:"data"`
	OccurredAt time.Time   `json:"occurred_at"`
	Seq        int         `json:"version"`
}

func (r Record) ID() string           { return r.EventID }
func (r Record) Type() string         { return r.EventType }
func (r Record) StreamID() string     { return r.Stream }
func (r Record) Data() interface{}    { return r.Payload }
func (r Record) Timestamp() time.Time { return r.OccurredAt }
func (r Record) Version() int         { return r.Seq }

// NewEvent creates an event the store stamps with its own clock
func NewEvent(eventType, streamID string, data interface{}) Event {
	return NewEventAt(eventType, streamID, data, time.Time{})
}

// NewEventAt creates an event that occurred at a known time
func NewEventAt(eventType, streamID string, data interface{}, at time.Time) Event {
	return Record{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		Stream:     streamID,
		Payload:    data,
		OccurredAt: at,
	}
}
