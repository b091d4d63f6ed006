// Package events publishes trip lifecycle events to a message sink.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Type identifies an event.
type Type string

// Event types.
const (
	TypeTripCreated      Type = "trip.created"
	TypeTripDeleted      Type = "trip.deleted"
	TypeTripRecomputed   Type = "trip.recomputed"
	TypeRecomputeFailed  Type = "trip.recompute_failed"
	TypeItineraryChanged Type = "trip.itinerary_changed"
)

// Event is a single trip event. TripID is used as the message key so that
// partitioned sinks keep one trip's events in order.
type Event struct {
	ID         string         `json:"id"`
	Type       Type           `json:"type"`
	TripID     string         `json:"trip_id"`
	Token      uint64         `json:"token,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// New creates an event with a fresh ID.
func New(typ Type, tripID string) Event {
	return Event{
		ID:         "evt_" + uuid.New().String(),
		Type:       typ,
		TripID:     tripID,
		OccurredAt: time.Now().UTC(),
	}
}

// With returns a copy of e with an attribute set.
func (e Event) With(key string, value any) Event {
	attrs := make(map[string]any, len(e.Attributes)+1)
	for k, v := range e.Attributes {
		attrs[k] = v
	}
	attrs[key] = value
	e.Attributes = attrs
	return e
}

// Marshal encodes the event as JSON.
func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// LogPublisher writes events to a logger. It is the default sink.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a log-only publisher.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the event at info level.
func (p *LogPublisher) Publish(_ context.Context, e Event) error {
	p.logger.Info().
		Str("event_id", e.ID).
		Str("event_type", string(e.Type)).
		Str("trip_id", e.TripID).
		Uint64("token", e.Token).
		Interface("attributes", e.Attributes).
		Msg("trip event")
	return nil
}

// Close is a no-op.
func (p *LogPublisher) Close() error { return nil }

// Nop discards events.
type Nop struct{}

// Publish discards e.
func (Nop) Publish(context.Context, Event) error { return nil }

// Close is a no-op.
func (Nop) Close() error { return nil }
