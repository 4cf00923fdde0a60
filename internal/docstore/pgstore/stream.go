package pgstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ariefcatur/go-hotel-console/internal/changefeed"
	"github.com/ariefcatur/go-hotel-console/internal/docstore"
)

// ErrFeedLost ends a stream whose change feed connection went away.
var ErrFeedLost = errors.New("change feed lost")

// Subscribe listens before it queries, so a write landing in between is
// seen at least once; the scope tracker folds the duplicate into Modified.
func (s *Store) Subscribe(ctx context.Context, collection string, f docstore.Filter) (docstore.Stream, error) {
	if s.Sub == nil {
		return nil, fmt.Errorf("subscribe %s: no change feed configured", collection)
	}
	l, err := s.Sub.Listen(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", collection, err)
	}
	docs, err := s.Query(ctx, collection, f)
	if err != nil {
		_ = l.Close()
		return nil, err
	}
	st := &stream{
		listener: l,
		tracker:  docstore.NewScopeTracker(f),
		out:      make(chan docstore.Notification),
		done:     make(chan struct{}),
	}
	go st.run(collection, docs)
	return st, nil
}

type stream struct {
	listener changefeed.Listener
	tracker  *docstore.ScopeTracker
	out      chan docstore.Notification
	done     chan struct{}
	once     sync.Once
}

func (st *stream) Notifications() <-chan docstore.Notification { return st.out }

func (st *stream) Close() error {
	st.once.Do(func() {
		close(st.done)
		_ = st.listener.Close()
	})
	return nil
}

func (st *stream) send(n docstore.Notification) bool {
	select {
	case st.out <- n:
		return true
	case <-st.done:
		return false
	}
}

func (st *stream) run(collection string, docs []docstore.Document) {
	defer close(st.out)
	for _, d := range docs {
		c, ok := st.tracker.Apply(docstore.Change{Kind: docstore.Added, Collection: collection, Doc: d})
		if ok && !st.send(docstore.Notification{Change: c}) {
			return
		}
	}
	if !st.send(docstore.Notification{Synced: true}) {
		return
	}
	for {
		select {
		case <-st.done:
			return
		case raw, ok := <-st.listener.Changes():
			if !ok {
				st.send(docstore.Notification{Err: fmt.Errorf("subscribe %s: %w", collection, ErrFeedLost)})
				return
			}
			if c, ok := st.tracker.Apply(raw); ok && !st.send(docstore.Notification{Change: c}) {
				return
			}
		}
	}
}
