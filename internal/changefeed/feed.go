package changefeed

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-hotel-console/internal/docstore"
	"github.com/ariefcatur/go-hotel-console/internal/logging"
)

// Listener delivers raw writes for one collection. Changes is closed once
// the listener is closed or its connection is lost.
type Listener interface {
	Changes() <-chan docstore.Change
	Close() error
}

// RedisFeed listens on the per-collection pub/sub channels the relay
// broadcasts to.
type RedisFeed struct {
	RDB *redis.Client
	log *logrus.Entry
}

func NewRedisFeed(rdb *redis.Client) *RedisFeed {
	return &RedisFeed{RDB: rdb, log: logging.For("redis-feed")}
}

// Listen subscribes to the collection's channel. The listener ends at the
// first sign of connection loss: go-redis would resubscribe on its own and
// drop whatever was published in between, so a reconnect is reported as a
// closed Changes channel instead.
func (f *RedisFeed) Listen(ctx context.Context, collection string) (Listener, error) {
	ps := f.RDB.Subscribe(ctx, Channel(collection))
	// wait for the subscription confirmation so no later broadcast is missed
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}
	lctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	l := &redisListener{
		ps:     ps,
		out:    make(chan docstore.Change, 64),
		cancel: cancel,
		log:    f.log.WithField("collection", collection),
	}
	go l.run(lctx)
	return l, nil
}

type redisListener struct {
	ps     *redis.PubSub
	out    chan docstore.Change
	cancel context.CancelFunc
	once   sync.Once
	log    *logrus.Entry
}

func (l *redisListener) Changes() <-chan docstore.Change { return l.out }

func (l *redisListener) Close() error {
	var err error
	l.once.Do(func() {
		l.cancel()
		err = l.ps.Close()
	})
	return err
}

func (l *redisListener) run(ctx context.Context) {
	defer close(l.out)
	defer l.Close()
	for {
		msg, err := l.ps.Receive(ctx)
		if err != nil {
			if ctx.Err() == nil {
				l.log.WithError(err).Warn("feed connection lost")
			}
			return
		}
		switch m := msg.(type) {
		case *redis.Message:
			var p DocumentChangedPayload
			if err := json.Unmarshal([]byte(m.Payload), &p); err != nil {
				l.log.WithError(err).Warn("skip undecodable broadcast")
				continue
			}
			select {
			case l.out <- p.Change():
			case <-ctx.Done():
				return
			}
		case *redis.Subscription:
			// the initial confirmation was consumed by Listen; any later
			// one means the client reconnected and resubscribed
			l.log.WithField("kind", m.Kind).Warn("feed resubscribed, treating as lost")
			return
		case *redis.Pong:
		}
	}
}

// LocalFeed is an in-process bus: writes published to it are delivered
// straight to its listeners. It serves single-process deployments that run
// without Kafka and Redis.
type LocalFeed struct {
	mu        sync.Mutex
	listeners map[*localListener]struct{}
}

func NewLocalFeed() *LocalFeed {
	return &LocalFeed{listeners: make(map[*localListener]struct{})}
}

func (f *LocalFeed) Publish(ctx context.Context, c docstore.Change) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// round-trip through the wire payload so listeners see what Redis would deliver
	b, err := json.Marshal(PayloadOf(c))
	if err != nil {
		return err
	}
	var p DocumentChangedPayload
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for l := range f.listeners {
		if l.collection == c.Collection {
			l.push(p.Change())
		}
	}
	return nil
}

func (f *LocalFeed) Listen(ctx context.Context, collection string) (Listener, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l := &localListener{
		feed:       f,
		collection: collection,
		wake:       make(chan struct{}, 1),
		out:        make(chan docstore.Change),
		done:       make(chan struct{}),
	}
	f.mu.Lock()
	f.listeners[l] = struct{}{}
	f.mu.Unlock()
	go l.pump()
	return l, nil
}

// Listeners reports how many listeners are open.
func (f *LocalFeed) Listeners() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

type localListener struct {
	feed       *LocalFeed
	collection string

	mu    sync.Mutex
	queue []docstore.Change
	wake  chan struct{}

	out  chan docstore.Change
	done chan struct{}
	once sync.Once
}

func (l *localListener) Changes() <-chan docstore.Change { return l.out }

func (l *localListener) Close() error {
	l.once.Do(func() {
		close(l.done)
		l.feed.mu.Lock()
		delete(l.feed.listeners, l)
		l.feed.mu.Unlock()
	})
	return nil
}

func (l *localListener) push(c docstore.Change) {
	l.mu.Lock()
	l.queue = append(l.queue, c)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *localListener) pump() {
	defer close(l.out)
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			select {
			case <-l.wake:
				continue
			case <-l.done:
				return
			}
		}
		c := l.queue[0]
		l.queue = l.queue[1:]
		l.mu.Unlock()

		select {
		case l.out <- c:
		case <-l.done:
			return
		}
	}
}
