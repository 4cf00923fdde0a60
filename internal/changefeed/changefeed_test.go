package changefeed

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-hotel-console/internal/docstore"
	"github.com/ariefcatur/go-hotel-console/internal/redisx"
)

type captured struct {
	key, value []byte
	headers    []kafkago.Header
}

type fakeSink struct{ msgs []captured }

func (s *fakeSink) Publish(key, value []byte, headers ...kafkago.Header) {
	s.msgs = append(s.msgs, captured{key, value, headers})
}

func roomChange(kind docstore.ChangeKind) docstore.Change {
	return docstore.Change{
		Kind:       kind,
		Collection: "rooms",
		Doc: docstore.Document{ID: "r1", Fields: map[string]any{
			"hotelId":     "h1",
			"number":      "101",
			"lastCleaned": docstore.TimestampOf(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)),
		}},
	}
}

func TestKafkaPublisherEnvelope(t *testing.T) {
	sink := &fakeSink{}
	p := NewKafkaPublisher(sink, "hotel-console")
	ctx := WithTraceID(context.Background(), "req-1")

	require.NoError(t, p.Publish(ctx, roomChange(docstore.Modified)))
	require.Len(t, sink.msgs, 1)
	msg := sink.msgs[0]

	assert.Equal(t, "rooms/r1", string(msg.key))
	require.Len(t, msg.headers, 2)
	assert.Equal(t, EventDocumentChanged, string(msg.headers[0].Value))

	var env Envelope
	require.NoError(t, json.Unmarshal(msg.value, &env))
	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, EventDocumentChanged, env.EventType)
	assert.Equal(t, "req-1", env.TraceID)
	assert.Equal(t, "rooms/r1", env.CorrelationID)

	var payload DocumentChangedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	c := payload.Change()
	assert.Equal(t, docstore.Modified, c.Kind)
	assert.Equal(t, "101", c.Doc.Fields["number"])
	assert.IsType(t, docstore.Timestamp{}, c.Doc.Fields["lastCleaned"])
}

func TestPublishRespectsCancelledContext(t *testing.T) {
	sink := &fakeSink{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, NewKafkaPublisher(sink, "x").Publish(ctx, roomChange(docstore.Added)))
	assert.Empty(t, sink.msgs)
}

func TestChannelNames(t *testing.T) {
	assert.Equal(t, "docs:rooms", Channel("rooms"))
	assert.Equal(t, "reservations/abc", string(PartitionKey("reservations", "abc")))
}

func receive(t *testing.T, l Listener) docstore.Change {
	t.Helper()
	select {
	case c, ok := <-l.Changes():
		require.True(t, ok, "listener closed")
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no change delivered")
		return docstore.Change{}
	}
}

func TestLocalFeedRoutesByCollection(t *testing.T) {
	ctx := context.Background()
	feed := NewLocalFeed()
	rooms, err := feed.Listen(ctx, "rooms")
	require.NoError(t, err)
	other, err := feed.Listen(ctx, "reservations")
	require.NoError(t, err)
	assert.Equal(t, 2, feed.Listeners())

	require.NoError(t, feed.Publish(ctx, roomChange(docstore.Added)))
	require.NoError(t, feed.Publish(ctx, roomChange(docstore.Removed)))

	first := receive(t, rooms)
	assert.Equal(t, docstore.Added, first.Kind)
	assert.IsType(t, docstore.Timestamp{}, first.Doc.Fields["lastCleaned"])
	assert.Equal(t, docstore.Removed, receive(t, rooms).Kind)

	select {
	case c := <-other.Changes():
		t.Fatalf("unexpected change on reservations: %+v", c)
	default:
	}

	require.NoError(t, rooms.Close())
	require.NoError(t, other.Close())
	assert.Equal(t, 0, feed.Listeners())
	_, ok := <-rooms.Changes()
	assert.False(t, ok)
}

// Needs a live Redis; set REDIS_TEST_ADDR to run.
func TestRedisFeedReceivesBroadcast(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	rdb := redisx.New(addr)
	defer rdb.Close()

	l, err := NewRedisFeed(rdb).Listen(ctx, "rooms")
	require.NoError(t, err)
	defer l.Close()

	b, err := json.Marshal(PayloadOf(roomChange(docstore.Modified)))
	require.NoError(t, err)
	require.NoError(t, rdb.Publish(ctx, Channel("rooms"), b).Err())

	c := receive(t, l)
	assert.Equal(t, "r1", c.Doc.ID)
	assert.Equal(t, docstore.Modified, c.Kind)
}

func TestRedisFeedEndsOnConnectionLoss(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	rdb := redisx.New(addr)
	defer rdb.Close()

	l, err := NewRedisFeed(rdb).Listen(ctx, "rooms")
	require.NoError(t, err)
	defer l.Close()

	admin := redisx.New(addr)
	defer admin.Close()
	require.NoError(t, admin.Do(ctx, "CLIENT", "KILL", "TYPE", "pubsub").Err())

	select {
	case _, ok := <-l.Changes():
		assert.False(t, ok, "listener must close instead of resubscribing")
	case <-time.After(5 * time.Second):
		t.Fatal("listener survived a killed connection")
	}
}

func TestRedisListenerCloseEndsChanges(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	rdb := redisx.New(addr)
	defer rdb.Close()

	l, err := NewRedisFeed(rdb).Listen(context.Background(), "rooms")
	require.NoError(t, err)
	require.NoError(t, l.Close())
	select {
	case _, ok := <-l.Changes():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("changes not closed")
	}
}
