// Package changefeed carries acknowledged document writes from the store to
// every console process: Kafka envelope out, Redis pub/sub fan-out back in.
package changefeed

import (
	"encoding/json"
	"time"

	"github.com/ariefcatur/go-hotel-console/internal/docstore"
)

const (
	EventDocumentChanged = "DocumentChanged"
	EventVersion         = 1
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // EventDocumentChanged
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g. "hotel-console"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // collection/id
	Payload       json.RawMessage `json:"payload"`
}

// DocumentChangedPayload is a raw write, without scope knowledge. Fields is
// the full document after the write (before it, for removals).
type DocumentChangedPayload struct {
	Collection string              `json:"collection"`
	Kind       docstore.ChangeKind `json:"kind"`
	DocID      string              `json:"doc_id"`
	Fields     map[string]any      `json:"fields,omitempty"`
}

func PayloadOf(c docstore.Change) DocumentChangedPayload {
	return DocumentChangedPayload{
		Collection: c.Collection,
		Kind:       c.Kind,
		DocID:      c.Doc.ID,
		Fields:     c.Doc.Fields,
	}
}

// Change converts a decoded payload back to a store change, restoring
// timestamps flattened by JSON.
func (p DocumentChangedPayload) Change() docstore.Change {
	fields := p.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	return docstore.Change{
		Kind:       p.Kind,
		Collection: p.Collection,
		Doc:        docstore.Document{ID: p.DocID, Fields: docstore.RestoreTimestamps(fields)},
	}
}
