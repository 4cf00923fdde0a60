package kafka

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-hotel-console/internal/logging"
)

// Handler returns nil only when the message was processed and its offset may
// be committed.
type Handler func(ctx context.Context, m kafka.Message) error

const (
	retryBase = 200 * time.Millisecond
	retryMax  = 10 * time.Second
)

type Consumer struct {
	r       *kafka.Reader
	workers int
	log     *logrus.Entry
}

func NewConsumer(brokers []string, group, topic string, workers int) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{
		r:       r,
		workers: workers,
		log:     logging.For("kafka-consumer").WithField("topic", topic).WithField("group", group),
	}
}

// WorkerFor picks the worker for a message key. Equal keys always land on
// the same worker so per-key order survives the fan-out.
func WorkerFor(key []byte, workers int) int {
	if workers <= 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write(key)
	return int(h.Sum32() % uint32(workers))
}

// Retry runs h until it succeeds or ctx ends, doubling the wait between
// attempts from base up to ceil. It returns ctx.Err() when cancelled.
func Retry(ctx context.Context, h Handler, m kafka.Message, base, ceil time.Duration, log *logrus.Entry) error {
	wait := base
	for attempt := 1; ; attempt++ {
		err := h(ctx, m)
		if err == nil {
			return nil
		}
		log.WithError(err).
			WithField("partition", m.Partition).
			WithField("offset", m.Offset).
			WithField("attempt", attempt).
			Warn("handler failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		if wait *= 2; wait > ceil {
			wait = ceil
		}
	}
}

// Start fetches until ctx ends. A message is retried until its handler
// succeeds, and a partition is only committed up to the newest offset whose
// predecessors have all succeeded.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	track := newOffsets()
	jobs := make([]chan kafka.Message, c.workers)
	var wg sync.WaitGroup

	for i := range jobs {
		jobs[i] = make(chan kafka.Message, 256)
		wg.Add(1)
		go func(in <-chan kafka.Message) {
			defer wg.Done()
			for m := range in {
				if err := Retry(ctx, h, m, retryBase, retryMax, c.log); err != nil {
					return // shutting down; offset stays uncommitted
				}
				if next, ok := track.completed(m); ok {
					if err := track.commit(ctx, next, c.r.CommitMessages); err != nil {
						c.log.WithError(err).WithField("offset", next.Offset).Warn("commit failed")
					}
				}
			}
		}(jobs[i])
	}
	stop := func() {
		for _, ch := range jobs {
			close(ch)
		}
		wg.Wait()
	}

	// dispatcher loop
	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			stop()
			// quiet on shutdown
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		track.dispatched(m)
		select {
		case jobs[WorkerFor(m.Key, c.workers)] <- m:
		case <-ctx.Done():
			stop()
			return nil
		}
	}
}

type commitFunc func(ctx context.Context, msgs ...kafka.Message) error

// offsets tracks in-flight messages per partition. Keys of one partition
// fan out to different workers, so completions arrive out of order.
type offsets struct {
	mu        sync.Mutex
	pending   map[int][]int64
	done      map[int]map[int64]kafka.Message
	commitMu  sync.Mutex
	committed map[int]int64
}

func newOffsets() *offsets {
	return &offsets{
		pending:   map[int][]int64{},
		done:      map[int]map[int64]kafka.Message{},
		committed: map[int]int64{},
	}
}

func (o *offsets) dispatched(m kafka.Message) {
	o.mu.Lock()
	o.pending[m.Partition] = append(o.pending[m.Partition], m.Offset)
	o.mu.Unlock()
}

// completed records m as processed and returns the newest message of its
// partition that is safe to commit, if that moved.
func (o *offsets) completed(m kafka.Message) (kafka.Message, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	done := o.done[m.Partition]
	if done == nil {
		done = map[int64]kafka.Message{}
		o.done[m.Partition] = done
	}
	done[m.Offset] = m

	var (
		last kafka.Message
		ok   bool
	)
	queue := o.pending[m.Partition]
	for len(queue) > 0 {
		next, fin := done[queue[0]]
		if !fin {
			break
		}
		delete(done, queue[0])
		queue = queue[1:]
		last, ok = next, true
	}
	o.pending[m.Partition] = queue
	return last, ok
}

// commit sends m to fn unless a newer offset of its partition is already
// committed.
func (o *offsets) commit(ctx context.Context, m kafka.Message, fn commitFunc) error {
	o.commitMu.Lock()
	defer o.commitMu.Unlock()
	if prev, ok := o.committed[m.Partition]; ok && prev >= m.Offset {
		return nil
	}
	if err := fn(ctx, m); err != nil {
		return err
	}
	o.committed[m.Partition] = m.Offset
	return nil
}
