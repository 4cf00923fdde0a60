package kafka

import (
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerForIsStable(t *testing.T) {
	key := []byte("rooms/r1")
	w := WorkerFor(key, 8)
	assert.GreaterOrEqual(t, w, 0)
	assert.Less(t, w, 8)
	for i := 0; i < 10; i++ {
		assert.Equal(t, w, WorkerFor(key, 8))
	}
	assert.Equal(t, 0, WorkerFor(key, 1))
	assert.Equal(t, 0, WorkerFor(key, 0))
}

func TestWorkerForSpreadsKeys(t *testing.T) {
	used := map[int]bool{}
	for _, k := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"} {
		used[WorkerFor([]byte("rooms/"+k), 4)] = true
	}
	assert.Greater(t, len(used), 1)
}

func TestEnvelopeHelpers(t *testing.T) {
	type payload struct {
		ID string `json:"id"`
	}
	type envelope struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	b := MustMarshal(map[string]any{"type": "x", "payload": payload{ID: "42"}})
	env, err := DecodeEnvelope[envelope](kafka.Message{Value: b})
	require.NoError(t, err)
	assert.Equal(t, "x", env.Type)

	p, err := UnwrapPayload[payload](env.Payload)
	require.NoError(t, err)
	assert.Equal(t, "42", p.ID)

	_, err = DecodeEnvelope[envelope](kafka.Message{Topic: "t", Value: []byte("{")})
	assert.ErrorContains(t, err, "t[0]@0")
	_, err = UnwrapPayload[payload](json.RawMessage(`[1]`))
	assert.Error(t, err)
	assert.Panics(t, func() { MustMarshal(make(chan int)) })
}
