package memory

import (
	"sync"

	"github.com/ariefcatur/go-hotel-console/internal/docstore"
)

type subscription struct {
	store      *Store
	collection string
	tracker    *docstore.ScopeTracker // guarded by store.mu

	mu    sync.Mutex
	queue []docstore.Notification
	wake  chan struct{}

	out       chan docstore.Notification
	done      chan struct{}
	closeOnce sync.Once
}

func newSubscription(s *Store, collectionName string, f docstore.Filter) *subscription {
	return &subscription{
		store:      s,
		collection: collectionName,
		tracker:    docstore.NewScopeTracker(f),
		wake:       make(chan struct{}, 1),
		out:        make(chan docstore.Notification),
		done:       make(chan struct{}),
	}
}

func (s *subscription) Notifications() <-chan docstore.Notification { return s.out }

func (s *subscription) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.store.unsubscribe(s)
	})
	return nil
}

func (s *subscription) push(n docstore.Notification) {
	s.mu.Lock()
	s.queue = append(s.queue, n)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// pump drains the queue into out in order. It stops after a terminal error
// or when the subscription is closed.
func (s *subscription) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}
		n := s.queue[0]
		s.queue[0] = docstore.Notification{}
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- n:
		case <-s.done:
			return
		}
		if n.Err != nil {
			return
		}
	}
}
