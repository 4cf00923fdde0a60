package docstore

// ScopeTracker turns raw per-document writes into changes relative to a
// filter: a document entering the scope is Added, one leaving it is Removed.
// Not safe for concurrent use; each subscription owns one.
type ScopeTracker struct {
	filter Filter
	known  map[string]struct{}
}

func NewScopeTracker(f Filter) *ScopeTracker {
	return &ScopeTracker{filter: f, known: make(map[string]struct{})}
}

// Apply maps a raw write (kind as seen by the store, without scope
// knowledge) to the change to deliver. ok is false when nothing should be
// delivered.
func (t *ScopeTracker) Apply(raw Change) (out Change, ok bool) {
	id := raw.Doc.ID
	_, seen := t.known[id]

	if raw.Kind == Removed {
		if !seen {
			return Change{}, false
		}
		delete(t.known, id)
		return raw, true
	}

	matches := t.filter.Matches(raw.Doc)
	switch {
	case matches && seen:
		raw.Kind = Modified
	case matches && !seen:
		t.known[id] = struct{}{}
		raw.Kind = Added
	case !matches && seen:
		delete(t.known, id)
		raw.Kind = Removed
	default:
		return Change{}, false
	}
	return raw, true
}

func (t *ScopeTracker) Len() int { return len(t.known) }
