// Package docstore defines the boundary to the remote document store: a
// schemaless key/value document collection with live subscriptions.
package docstore

import (
	"context"
	"errors"
)

var (
	ErrNotFound         = errors.New("document not found")
	ErrClosed           = errors.New("store closed")
	ErrPermissionDenied = errors.New("permission denied")
)

type ChangeKind string

const (
	Added    ChangeKind = "added"
	Modified ChangeKind = "modified"
	Removed  ChangeKind = "removed"
)

// Document is a raw store document. Fields hold primitive values, slices,
// maps and Timestamp values.
type Document struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// Clone returns a copy whose top-level field map can be mutated freely.
func (d Document) Clone() Document {
	out := Document{ID: d.ID, Fields: make(map[string]any, len(d.Fields))}
	for k, v := range d.Fields {
		out.Fields[k] = v
	}
	return out
}

type Change struct {
	Kind       ChangeKind `json:"kind"`
	Collection string     `json:"collection"`
	Doc        Document   `json:"doc"`
}

// Notification is one delivery on a Stream: a change, the Synced marker that
// ends the initial replay, or a terminal error. After an error the stream
// delivers nothing else.
type Notification struct {
	Change Change
	Synced bool
	Err    error
}

// Stream is a live subscription. Notifications is closed after a terminal
// error or after Close.
type Stream interface {
	Notifications() <-chan Notification
	Close() error
}

// Store is the remote document store as seen by this core.
type Store interface {
	// Subscribe replays every matching document as Added, sends one Synced
	// marker, then forwards live changes relative to the filter.
	Subscribe(ctx context.Context, collection string, f Filter) (Stream, error)
	Query(ctx context.Context, collection string, f Filter) ([]Document, error)
	Get(ctx context.Context, collection, id string) (Document, error)
	Create(ctx context.Context, collection string, fields map[string]any) (string, error)
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Delete(ctx context.Context, collection, id string) error
}
