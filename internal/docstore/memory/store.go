// Package memory is an in-process docstore.Store. Each subscriber gets its own
// ordered, unbounded delivery queue so a slow observer never blocks writers.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ariefcatur/go-hotel-console/internal/docstore"
)

type collection struct {
	docs  map[string]docstore.Document
	order []string
}

type Store struct {
	mu          sync.Mutex
	collections map[string]*collection
	subs        map[*subscription]struct{}
	denied      map[string]bool
	writeErr    map[string]error
	closed      bool
}

func New() *Store {
	return &Store{
		collections: make(map[string]*collection),
		subs:        make(map[*subscription]struct{}),
		denied:      make(map[string]bool),
		writeErr:    make(map[string]error),
	}
}

var _ docstore.Store = (*Store)(nil)

func (s *Store) coll(name string) *collection {
	c, ok := s.collections[name]
	if !ok {
		c = &collection{docs: make(map[string]docstore.Document)}
		s.collections[name] = c
	}
	return c
}

// Deny makes new subscriptions on the collection fail with
// ErrPermissionDenied, delivered as a terminal notification.
func (s *Store) Deny(collectionName string, denied bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.denied[collectionName] = denied
}

// FailWrites makes every write to the collection return err until called
// again with a nil error.
func (s *Store) FailWrites(collectionName string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.writeErr, collectionName)
		return
	}
	s.writeErr[collectionName] = err
}

// FailSubscriptions terminates every live subscription on the collection
// with err.
func (s *Store) FailSubscriptions(collectionName string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subs {
		if sub.collection == collectionName {
			sub.push(docstore.Notification{Err: err})
			delete(s.subs, sub)
		}
	}
}

// Subscribers reports the number of live subscriptions on a collection.
func (s *Store) Subscribers(collectionName string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for sub := range s.subs {
		if sub.collection == collectionName {
			n++
		}
	}
	return n
}

func (s *Store) Subscribe(ctx context.Context, collectionName string, f docstore.Filter) (docstore.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, docstore.ErrClosed
	}

	sub := newSubscription(s, collectionName, f)
	go sub.pump()

	if s.denied[collectionName] {
		sub.push(docstore.Notification{Err: fmt.Errorf("subscribe %s: %w", collectionName, docstore.ErrPermissionDenied)})
		return sub, nil
	}

	c := s.coll(collectionName)
	for _, id := range c.order {
		raw := docstore.Change{Kind: docstore.Added, Collection: collectionName, Doc: c.docs[id].Clone()}
		if out, ok := sub.tracker.Apply(raw); ok {
			sub.push(docstore.Notification{Change: out})
		}
	}
	sub.push(docstore.Notification{Synced: true})
	s.subs[sub] = struct{}{}
	return sub, nil
}

func (s *Store) Query(ctx context.Context, collectionName string, f docstore.Filter) ([]docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, docstore.ErrClosed
	}
	c := s.coll(collectionName)
	out := make([]docstore.Document, 0, len(c.order))
	for _, id := range c.order {
		if d := c.docs[id]; f.Matches(d) {
			out = append(out, d.Clone())
		}
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, collectionName, id string) (docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return docstore.Document{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.coll(collectionName).docs[id]
	if !ok {
		return docstore.Document{}, fmt.Errorf("%s/%s: %w", collectionName, id, docstore.ErrNotFound)
	}
	return d.Clone(), nil
}

func (s *Store) Create(ctx context.Context, collectionName string, fields map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writable(collectionName); err != nil {
		return "", err
	}
	d := docstore.Document{ID: uuid.NewString(), Fields: docstore.NormalizeFields(fields)}
	c := s.coll(collectionName)
	c.docs[d.ID] = d
	c.order = append(c.order, d.ID)
	s.broadcast(docstore.Change{Kind: docstore.Added, Collection: collectionName, Doc: d})
	return d.ID, nil
}

// Put writes a document under a caller-chosen id, creating or replacing it.
func (s *Store) Put(ctx context.Context, collectionName string, d docstore.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writable(collectionName); err != nil {
		return err
	}
	c := s.coll(collectionName)
	kind := docstore.Modified
	if _, ok := c.docs[d.ID]; !ok {
		kind = docstore.Added
		c.order = append(c.order, d.ID)
	}
	d = docstore.Document{ID: d.ID, Fields: docstore.NormalizeFields(d.Fields)}
	c.docs[d.ID] = d
	s.broadcast(docstore.Change{Kind: kind, Collection: collectionName, Doc: d})
	return nil
}

func (s *Store) Update(ctx context.Context, collectionName, id string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writable(collectionName); err != nil {
		return err
	}
	c := s.coll(collectionName)
	cur, ok := c.docs[id]
	if !ok {
		return fmt.Errorf("%s/%s: %w", collectionName, id, docstore.ErrNotFound)
	}
	next := cur.Clone()
	for k, v := range docstore.NormalizeFields(fields) {
		next.Fields[k] = v
	}
	c.docs[id] = next
	s.broadcast(docstore.Change{Kind: docstore.Modified, Collection: collectionName, Doc: next})
	return nil
}

func (s *Store) Delete(ctx context.Context, collectionName, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writable(collectionName); err != nil {
		return err
	}
	c := s.coll(collectionName)
	cur, ok := c.docs[id]
	if !ok {
		return fmt.Errorf("%s/%s: %w", collectionName, id, docstore.ErrNotFound)
	}
	delete(c.docs, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	s.broadcast(docstore.Change{Kind: docstore.Removed, Collection: collectionName, Doc: cur})
	return nil
}

// Close terminates all subscriptions with ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for sub := range s.subs {
		sub.push(docstore.Notification{Err: docstore.ErrClosed})
	}
	s.subs = make(map[*subscription]struct{})
	return nil
}

// caller holds s.mu
func (s *Store) writable(collectionName string) error {
	if s.closed {
		return docstore.ErrClosed
	}
	if err := s.writeErr[collectionName]; err != nil {
		return err
	}
	return nil
}

// caller holds s.mu
func (s *Store) broadcast(raw docstore.Change) {
	for sub := range s.subs {
		if sub.collection != raw.Collection {
			continue
		}
		ch := raw
		ch.Doc = raw.Doc.Clone()
		if out, ok := sub.tracker.Apply(ch); ok {
			sub.push(docstore.Notification{Change: out})
		}
	}
}

func (s *Store) unsubscribe(sub *subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, sub)
}
