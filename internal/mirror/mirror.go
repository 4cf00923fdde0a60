// Package mirror keeps an in-memory, id-keyed copy of a remote collection in
// sync with the store and emits the full snapshot on every change.
package mirror

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-hotel-console/internal/docstore"
	"github.com/ariefcatur/go-hotel-console/internal/logging"
)

// Decoder builds a typed entity from a raw document. now is the wall clock
// at materialization and stands in for missing dates.
type Decoder[T any] func(d docstore.Document, now time.Time) T

// Event is one emission. A non-nil Err is terminal; Items then holds the last
// known-good snapshot.
type Event[T any] struct {
	Items []T
	Err   error
}

type Option func(*options)

type options struct {
	now func() time.Time
	log *logrus.Entry
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

type Mirror[T any] struct {
	collection string
	filter     docstore.Filter
	stream     docstore.Stream
	decode     Decoder[T]
	opts       options

	// emitMu serializes deliveries so every observer sees emissions in order.
	emitMu sync.Mutex

	mu        sync.Mutex
	items     map[string]T
	order     []string
	ready     bool
	err       error
	closed    bool
	observers map[int]func(Event[T])
	nextID    int

	done chan struct{}
}

// Open subscribes to collection under f and starts applying notifications.
func Open[T any](ctx context.Context, store docstore.Store, collection string, f docstore.Filter, decode Decoder[T], opts ...Option) (*Mirror[T], error) {
	o := options{now: time.Now, log: logging.For("mirror")}
	for _, fn := range opts {
		fn(&o)
	}
	st, err := store.Subscribe(ctx, collection, f)
	if err != nil {
		return nil, fmt.Errorf("open mirror %s(%s): %w", collection, f.Scope(), err)
	}
	m := &Mirror[T]{
		collection: collection,
		filter:     f,
		stream:     st,
		decode:     decode,
		opts:       o,
		items:      make(map[string]T),
		observers:  make(map[int]func(Event[T])),
		done:       make(chan struct{}),
	}
	go m.run()
	return m, nil
}

func (m *Mirror[T]) Collection() string       { return m.collection }
func (m *Mirror[T]) Filter() docstore.Filter { return m.filter }

// Done is closed once the mirror stops receiving notifications.
func (m *Mirror[T]) Done() <-chan struct{} { return m.done }

func (m *Mirror[T]) run() {
	defer close(m.done)
	for n := range m.stream.Notifications() {
		m.apply(n)
	}
	m.mu.Lock()
	ended := !m.closed && m.err == nil
	m.mu.Unlock()
	if ended {
		m.apply(docstore.Notification{Err: docstore.ErrClosed})
	}
}

func (m *Mirror[T]) apply(n docstore.Notification) {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()

	m.mu.Lock()
	if m.closed || m.err != nil {
		m.mu.Unlock()
		return
	}
	switch {
	case n.Err != nil:
		m.err = n.Err
		m.opts.log.WithError(n.Err).
			WithField("collection", m.collection).
			WithField("scope", m.filter.Scope()).
			Warn("subscription failed")
	case n.Synced:
		m.ready = true
	default:
		m.materialize(n.Change)
		if !m.ready {
			m.mu.Unlock()
			return
		}
	}
	ev := Event[T]{Items: m.snapshotLocked(), Err: m.err}
	obs := m.observersLocked()
	m.mu.Unlock()

	for _, fn := range obs {
		fn(ev)
	}
}

// caller holds m.mu
func (m *Mirror[T]) materialize(c docstore.Change) {
	id := c.Doc.ID
	switch c.Kind {
	case docstore.Removed:
		if _, ok := m.items[id]; !ok {
			return
		}
		delete(m.items, id)
		for i, oid := range m.order {
			if oid == id {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	default:
		if _, ok := m.items[id]; !ok {
			m.order = append(m.order, id)
		}
		m.items[id] = m.decode(c.Doc, m.opts.now())
	}
}

// caller holds m.mu
func (m *Mirror[T]) snapshotLocked() []T {
	out := make([]T, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.items[id])
	}
	return out
}

// caller holds m.mu
func (m *Mirror[T]) observersLocked() []func(Event[T]) {
	ids := make([]int, 0, len(m.observers))
	for id := range m.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(Event[T]), 0, len(ids))
	for _, id := range ids {
		out = append(out, m.observers[id])
	}
	return out
}

// Observe registers fn. A late observer immediately receives the latest
// snapshot (or the terminal error). fn must not call Observe on the same
// mirror; cancel and Close are safe from inside fn.
func (m *Mirror[T]) Observe(fn func(Event[T])) (cancel func()) {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return func() {}
	}
	id := m.nextID
	m.nextID++
	m.observers[id] = fn
	replay := m.ready || m.err != nil
	ev := Event[T]{Items: m.snapshotLocked(), Err: m.err}
	m.mu.Unlock()

	if replay {
		fn(ev)
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.observers, id)
			m.mu.Unlock()
		})
	}
}

// Snapshot returns a copy of the current items in arrival order.
func (m *Mirror[T]) Snapshot() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Mirror[T]) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}

func (m *Mirror[T]) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Close releases the subscription. No new emission starts after Close
// returns; one already being delivered may still finish.
func (m *Mirror[T]) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.observers = make(map[int]func(Event[T]))
	m.mu.Unlock()
	return m.stream.Close()
}
