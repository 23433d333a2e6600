// Package document models the generic input tree (maps, sequences, scalars)
// and the visibility filtering applied to it before rendering.
package document

// Node is the tagged union over the three shapes a document value can take.
// Consumers type-switch over Scalar, Sequence and *Map; no other
// implementations exist.
type Node interface {
	isNode()
}

// Scalar is a leaf value: string, int, float64, bool or nil.
type Scalar struct {
	Value any
}

func (Scalar) isNode() {}

// Sequence is an ordered list of nodes.
type Sequence []Node

func (Sequence) isNode() {}

// Entry is a single key/value pair of a Map.
type Entry struct {
	Key   string
	Value Node
}

// Map is an ordered map node. Keys are unique; Set replaces in place so
// insertion order is preserved.
type Map struct {
	entries []Entry
}

func (*Map) isNode() {}

// Len returns the number of entries.
func (m *Map) Len() int {
	return len(m.entries)
}

// Get returns the value for key and whether it is present.
func (m *Map) Get(key string) (Node, bool) {
	for _, e := range m.entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Set inserts or replaces the value for key, keeping first-insertion order.
func (m *Map) Set(key string, value Node) {
	for i, e := range m.entries {
		if e.Key == key {
			m.entries[i].Value = value
			return
		}
	}
	m.entries = append(m.entries, Entry{Key: key, Value: value})
}

// Entries returns the entries in insertion order.
func (m *Map) Entries() []Entry {
	return m.entries
}

// Bindings converts a node tree into the plain map/slice/scalar values
// that text/template consumes. Map ordering is lost here, which is fine:
// templates address map fields by name and iterate only sequences.
func Bindings(n Node) any {
	switch v := n.(type) {
	case Scalar:
		return v.Value
	case Sequence:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Bindings(item)
		}
		return out
	case *Map:
		out := make(map[string]any, v.Len())
		for _, e := range v.entries {
			out[e.Key] = Bindings(e.Value)
		}
		return out
	default:
		return nil
	}
}
