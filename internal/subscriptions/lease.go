package subscriptions

import (
	"sync"

	"github.com/ariefcatur/go-hotel-console/internal/mirror"
)

// Lease is one consumer's reference to a shared mirror.
type Lease[T any] struct {
	r *Registry
	h *Handle
	m *mirror.Mirror[T]

	mu      sync.Mutex
	cancels []func()
	done    bool
	once    sync.Once
}

func (l *Lease[T]) Key() Key                  { return l.h.key }
func (l *Lease[T]) Mirror() *mirror.Mirror[T] { return l.m }
func (l *Lease[T]) Snapshot() []T             { return l.m.Snapshot() }

// Observe registers fn on the shared mirror. Emissions from a handle that is
// no longer the live one for its key are dropped.
func (l *Lease[T]) Observe(fn func(mirror.Event[T])) (cancel func()) {
	l.mu.Lock()
	done := l.done
	l.mu.Unlock()
	if done {
		return func() {}
	}
	c := l.m.Observe(func(ev mirror.Event[T]) {
		if !l.r.live(l.h) {
			return
		}
		fn(ev)
	})

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done {
		c()
		return func() {}
	}
	l.cancels = append(l.cancels, c)
	return c
}

// Release cancels this lease's observers and drops its reference. Safe to
// call more than once.
func (l *Lease[T]) Release() {
	l.once.Do(func() {
		l.mu.Lock()
		l.done = true
		cs := l.cancels
		l.cancels = nil
		l.mu.Unlock()
		for _, c := range cs {
			c()
		}
		l.r.release(l.h)
	})
}

// Releaser is satisfied by every Lease.
type Releaser interface{ Release() }

// Group collects the leases one view holds so it can switch scope in one
// step.
type Group struct {
	mu     sync.Mutex
	leases []Releaser
}

func (g *Group) Add(l Releaser) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.leases = append(g.leases, l)
}

// ReleaseAll releases every lease in the group, newest first.
func (g *Group) ReleaseAll() {
	g.mu.Lock()
	ls := g.leases
	g.leases = nil
	g.mu.Unlock()
	for i := len(ls) - 1; i >= 0; i-- {
		ls[i].Release()
	}
}

func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.leases)
}
