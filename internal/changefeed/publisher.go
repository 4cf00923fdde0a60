package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-hotel-console/internal/docstore"
	kafkax "github.com/ariefcatur/go-hotel-console/internal/kafka"
)

// Sink is the outbound side of a Kafka producer.
type Sink interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// KafkaPublisher turns acknowledged writes into DocumentChanged envelopes.
type KafkaPublisher struct {
	Sink     Sink
	Producer string
	now      func() time.Time
}

func NewKafkaPublisher(sink Sink, producer string) *KafkaPublisher {
	return &KafkaPublisher{Sink: sink, Producer: producer, now: time.Now}
}

func (p *KafkaPublisher) Publish(ctx context.Context, c docstore.Change) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(PayloadOf(c))
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", c.Collection, c.Doc.ID, err)
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     EventDocumentChanged,
		EventVersion:  EventVersion,
		OccurredAt:    p.now().UTC(),
		Producer:      p.Producer,
		TraceID:       TraceID(ctx),
		CorrelationID: string(PartitionKey(c.Collection, c.Doc.ID)),
		Payload:       payload,
	}
	p.Sink.Publish(PartitionKey(c.Collection, c.Doc.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(EventDocumentChanged)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
	return nil
}

type traceKey struct{}

// WithTraceID attaches a request id that published envelopes will carry.
func WithTraceID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, traceKey{}, id)
}

func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}
