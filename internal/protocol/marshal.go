package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrUnknownMessageType is returned for envelopes whose type tag the
// router does not recognize
var ErrUnknownMessageType = errors.New("unknown message type")

// Marshal frames a payload into an envelope and serializes it for the wire
func Marshal(t MessageType, payload any, sentAt time.Time) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s payload: %w", t, err)
	}
	env := Envelope{Type: t, Payload: raw, Timestamp: sentAt.UnixMilli()}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s envelope: %w", t, err)
	}
	return data, nil
}

// Unmarshal parses an envelope off the wire. The payload stays raw until
// the dispatcher knows which struct to decode it into.
func Unmarshal(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("parsing envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, errors.New("envelope missing type")
	}
	return env, nil
}

// DecodePayload decodes the raw payload into a typed intent or event. An
// absent payload decodes as the zero value, which suits intents like
// get-rooms that carry no fields.
func (e Envelope) DecodePayload(v any) error {
	if len(e.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decoding %s payload: %w", e.Type, err)
	}
	return nil
}
