package kafka

import (
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// MustMarshal is for values that always encode (envelopes of plain fields).
func MustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// DecodeEnvelope decodes a message value; the error names where the message
// came from.
func DecodeEnvelope[E any](m kafka.Message) (E, error) {
	var env E
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return env, fmt.Errorf("decode envelope %s[%d]@%d: %w", m.Topic, m.Partition, m.Offset, err)
	}
	return env, nil
}

// UnwrapPayload decodes an envelope's typed payload.
func UnwrapPayload[T any](payload json.RawMessage) (T, error) {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		return t, fmt.Errorf("decode payload: %w", err)
	}
	return t, nil
}
