package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-checkout/pkg/enums"
)

// EnvelopeVersion is bumped only for breaking changes to Envelope itself;
// payload changes are versioned by event type.
const EnvelopeVersion = 1

var ErrMalformedEnvelope = errors.New("malformed outbox envelope")

// Actor identifies who caused the event: a customer, the payment processor or
// an operator changing order status.
type Actor struct {
	Kind string `json:"kind"`
	ID   string `json:"id,omitempty"`
}

// Envelope is the JSON stored in outbox_events.payload and sent verbatim as
// the Pub/Sub message body.
type Envelope struct {
	Version    int                   `json:"version"`
	EventID    uuid.UUID             `json:"event_id"`
	EventType  enums.OutboxEventType `json:"event_type"`
	OccurredAt time.Time             `json:"occurred_at"`
	Actor      *Actor                `json:"actor,omitempty"`
	Data       json.RawMessage       `json:"data"`
}

func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	switch {
	case env.Version < 1 || env.Version > EnvelopeVersion:
		return Envelope{}, fmt.Errorf("%w: unsupported version %d", ErrMalformedEnvelope, env.Version)
	case env.EventID == uuid.Nil:
		return Envelope{}, fmt.Errorf("%w: missing event_id", ErrMalformedEnvelope)
	case isEmptyJSON(env.Data):
		return Envelope{}, fmt.Errorf("%w: missing data", ErrMalformedEnvelope)
	}
	return env, nil
}

// DecodeData unmarshals the event payload into dst.
func (e Envelope) DecodeData(dst any) error {
	if err := json.Unmarshal(e.Data, dst); err != nil {
		return fmt.Errorf("decode %s data: %w", e.EventType, err)
	}
	return nil
}

func isEmptyJSON(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
