package docstore

import "fmt"

// Filter restricts a collection to documents whose Field equals Value.
// The zero Filter matches everything.
type Filter struct {
	Field string
	Value string
}

func Where(field, value string) Filter { return Filter{Field: field, Value: value} }

func (f Filter) IsZero() bool { return f.Field == "" }

func (f Filter) Matches(d Document) bool {
	if f.IsZero() {
		return true
	}
	v, ok := d.Fields[f.Field]
	if !ok || v == nil {
		return false
	}
	switch s := v.(type) {
	case string:
		return s == f.Value
	default:
		return fmt.Sprint(s) == f.Value
	}
}

// Scope is the canonical scope string for registries and logs.
func (f Filter) Scope() string {
	if f.IsZero() {
		return "*"
	}
	return f.Field + "=" + f.Value
}
