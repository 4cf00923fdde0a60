// Package relay consumes DocumentChanged events from Kafka and fans them out
// on the Redis channel of their collection, once per event.
package relay

import (
	"context"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-hotel-console/internal/changefeed"
	kafkax "github.com/ariefcatur/go-hotel-console/internal/kafka"
	"github.com/ariefcatur/go-hotel-console/internal/logging"
)

type Deduper interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

type Broadcaster interface {
	Broadcast(ctx context.Context, channel string, payload []byte) error
}

type Service struct {
	Dedup Deduper
	Out   Broadcaster
	log   *logrus.Entry
}

func NewService(dedup Deduper, out Broadcaster) *Service {
	return &Service{Dedup: dedup, Out: out, log: logging.For("relay")}
}

// HandleDocumentChanged is installed as the consumer handler. A returned
// error makes the consumer retry the message before committing past it.
func (s *Service) HandleDocumentChanged(ctx context.Context, m kafkago.Message) error {
	// 1) decode envelope
	env, err := kafkax.DecodeEnvelope[changefeed.Envelope](m)
	if err != nil {
		// poison message: log and move on
		s.log.WithError(err).Warn("drop undecodable message")
		return nil
	}
	if env.EventType != changefeed.EventDocumentChanged {
		return nil
	}

	// 2) dedup by event_id
	seen, err := s.Dedup.Seen(ctx, env.EventID)
	if err != nil {
		return fmt.Errorf("dedup lookup %s: %w", env.EventID, err)
	}
	if seen {
		return nil
	}

	// 3) payload
	p, err := kafkax.UnwrapPayload[changefeed.DocumentChangedPayload](env.Payload)
	if err != nil {
		s.log.WithError(err).WithField("event_id", env.EventID).Warn("drop undecodable payload")
		return nil
	}

	// 4) fan out, then remember the event
	if err := s.Out.Broadcast(ctx, changefeed.Channel(p.Collection), env.Payload); err != nil {
		return fmt.Errorf("broadcast %s: %w", env.EventID, err)
	}
	if err := s.Dedup.Mark(ctx, env.EventID); err != nil {
		s.log.WithError(err).WithField("event_id", env.EventID).Warn("mark processed")
	}
	s.log.WithFields(logrus.Fields{
		"event_id":   env.EventID,
		"collection": p.Collection,
		"doc_id":     p.DocID,
		"kind":       p.Kind,
	}).Debug("relayed")
	return nil
}
