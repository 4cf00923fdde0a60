// Package subscriptions owns every open mirror in the process: at most one
// live subscription per (collection, scope), shared by reference count.
package subscriptions

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-hotel-console/internal/docstore"
	"github.com/ariefcatur/go-hotel-console/internal/logging"
	"github.com/ariefcatur/go-hotel-console/internal/mirror"
)

type Key struct {
	Collection string
	Scope      string
}

func (k Key) String() string { return k.Collection + "(" + k.Scope + ")" }

// Handle is the registry's record of one open subscription.
type Handle struct {
	key    Key
	mirror any // *mirror.Mirror[T]
	closer func() error
	failed func() bool
	refs   int
}

func (h *Handle) Key() Key { return h.key }

type Registry struct {
	store docstore.Store
	opts  []mirror.Option
	log   *logrus.Entry

	mu      sync.Mutex
	handles map[Key]*Handle
	closed  bool
}

func NewRegistry(store docstore.Store, opts ...mirror.Option) *Registry {
	return &Registry{
		store:   store,
		opts:    opts,
		log:     logging.For("subscriptions"),
		handles: make(map[Key]*Handle),
	}
}

// AcquireMirror returns a lease on the mirror for (collection, f), opening it
// if no live handle exists. A handle whose subscription has failed is
// replaced by a fresh one; holders of the failed lease keep it until they
// release it.
func AcquireMirror[T any](ctx context.Context, r *Registry, collection string, f docstore.Filter, decode mirror.Decoder[T]) (*Lease[T], error) {
	key := Key{Collection: collection, Scope: f.Scope()}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, docstore.ErrClosed
	}

	if h, ok := r.handles[key]; ok {
		if !h.failed() {
			m, ok := h.mirror.(*mirror.Mirror[T])
			if !ok {
				return nil, fmt.Errorf("subscription %s: already open with another entity type", key)
			}
			h.refs++
			return &Lease[T]{r: r, h: h, m: m}, nil
		}
		delete(r.handles, key)
		r.log.WithField("key", key.String()).Info("replacing failed subscription")
	}

	m, err := mirror.Open(ctx, r.store, collection, f, decode, r.opts...)
	if err != nil {
		return nil, err
	}
	h := &Handle{
		key:    key,
		mirror: m,
		closer: m.Close,
		failed: func() bool { return m.Err() != nil },
		refs:   1,
	}
	r.handles[key] = h
	r.log.WithField("key", key.String()).Debug("subscription opened")
	return &Lease[T]{r: r, h: h, m: m}, nil
}

// live reports whether h is still the registered handle for its key.
func (r *Registry) live(h *Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return h.refs > 0 && r.handles[h.key] == h
}

func (r *Registry) release(h *Handle) {
	r.mu.Lock()
	h.refs--
	if h.refs > 0 {
		r.mu.Unlock()
		return
	}
	if r.handles[h.key] == h {
		delete(r.handles, h.key)
	}
	r.mu.Unlock()

	if err := h.closer(); err != nil {
		r.log.WithError(err).WithField("key", h.key.String()).Warn("close subscription")
	}
	r.log.WithField("key", h.key.String()).Debug("subscription closed")
}

// Live lists the keys with an open handle, sorted.
func (r *Registry) Live() []Key {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Key, 0, len(r.handles))
	for k := range r.handles {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Collection != out[j].Collection {
			return out[i].Collection < out[j].Collection
		}
		return out[i].Scope < out[j].Scope
	})
	return out
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// Refs reports the reference count of the live handle for key.
func (r *Registry) Refs(key Key) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.handles[key]; ok {
		return h.refs
	}
	return 0
}

// Close closes every handle. Outstanding leases become inert.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	hs := make([]*Handle, 0, len(r.handles))
	for _, h := range r.handles {
		hs = append(hs, h)
	}
	r.handles = make(map[Key]*Handle)
	r.mu.Unlock()

	var first error
	for _, h := range hs {
		if err := h.closer(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
