package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// CanonicalEvent represents a versioned domain event.
type CanonicalEvent interface {
	EventType() string
}

// ErrUnknownEventType is returned by Decode for event types this build does
// not know. Consumers usually skip such envelopes.
var ErrUnknownEventType = errors.New("events: unknown event type")

// decoders maps each event type to a constructor for its payload struct.
var decoders = map[string]func() CanonicalEvent{
	TypeBookingCreated:       func() CanonicalEvent { return &BookingCreatedV1{} },
	TypeBookingStatusChanged: func() CanonicalEvent { return &BookingStatusChangedV1{} },
	TypeBookingRescheduled:   func() CanonicalEvent { return &BookingRescheduledV1{} },
	TypeBookingMeetingReady:  func() CanonicalEvent { return &BookingMeetingReadyV1{} },
}

// BookingAggregate is the aggregate key used for every booking event.
func BookingAggregate(bookingID string) string { return "booking:" + bookingID }

// Envelope is the unit written to the outbox and published to the
// notification queue. TimestampMicros is when the booking change committed.
type Envelope struct {
	EventID         uuid.UUID       `json:"event_id"`
	EventType       string          `json:"event_type"`
	Aggregate       string          `json:"aggregate"`
	TimestampMicros int64           `json:"timestamp"`
	CorrelationID   string          `json:"correlation_id,omitempty"`
	Payload         json.RawMessage `json:"payload"`
}

// EnvelopeOption customizes the generated envelope.
type EnvelopeOption func(*Envelope)

// WithEventID overrides the automatically generated event id.
func WithEventID(id uuid.UUID) EnvelopeOption {
	return func(e *Envelope) {
		if id != uuid.Nil {
			e.EventID = id
		}
	}
}

// WithTimestamp overrides the timestamp stored in microseconds.
func WithTimestamp(ts time.Time) EnvelopeOption {
	return func(e *Envelope) {
		if ts.IsZero() {
			return
		}
		e.TimestampMicros = ts.UTC().UnixMicro()
	}
}

var (
	errMissingAggregate = errors.New("events: aggregate is required")
	errNilEvent         = errors.New("events: canonical event required")
	nowFunc             = time.Now
)

// NewEnvelope marshals evt and wraps it with transport metadata.
func NewEnvelope(aggregate, correlationID string, evt CanonicalEvent, opts ...EnvelopeOption) (Envelope, error) {
	if strings.TrimSpace(aggregate) == "" {
		return Envelope{}, errMissingAggregate
	}
	if evt == nil {
		return Envelope{}, errNilEvent
	}
	eventType := strings.TrimSpace(evt.EventType())
	if eventType == "" {
		return Envelope{}, fmt.Errorf("events: event type missing")
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return Envelope{}, fmt.Errorf("events: marshal canonical payload: %w", err)
	}
	env := Envelope{
		EventID:         uuid.New(),
		EventType:       eventType,
		Aggregate:       strings.TrimSpace(aggregate),
		TimestampMicros: nowFunc().UTC().UnixMicro(),
		CorrelationID:   strings.TrimSpace(correlationID),
		Payload:         append([]byte(nil), payload...),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&env)
		}
	}
	return env, nil
}

// Decode unmarshals the payload into its typed event. The result is a pointer
// such as *BookingCreatedV1.
func (e Envelope) Decode() (CanonicalEvent, error) {
	newEvent, ok := decoders[e.EventType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, e.EventType)
	}
	evt := newEvent()
	if err := json.Unmarshal(e.Payload, evt); err != nil {
		return nil, fmt.Errorf("events: decode %s: %w", e.EventType, err)
	}
	return evt, nil
}

// Execer is satisfied by pgx pools, connections and transactions.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// AppendCanonicalEvent writes evt to the outbox through exec. Bookings pass
// the transaction that wrote the booking row, so the email is sent if and
// only if the change commits.
func AppendCanonicalEvent(ctx context.Context, exec Execer, aggregate, correlationID string, evt CanonicalEvent, opts ...EnvelopeOption) (Envelope, error) {
	if exec == nil {
		return Envelope{}, fmt.Errorf("events: exec required")
	}
	env, err := NewEnvelope(aggregate, correlationID, evt, opts...)
	if err != nil {
		return Envelope{}, err
	}
	query := `
		INSERT INTO outbox (id, aggregate, event_type, correlation_id, payload)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := exec.Exec(ctx, query, env.EventID, env.Aggregate, env.EventType, env.CorrelationID, []byte(env.Payload)); err != nil {
		return Envelope{}, fmt.Errorf("events: append canonical event: %w", err)
	}
	return env, nil
}
