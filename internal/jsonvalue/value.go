// Package jsonvalue defines the structured data model shared by the engine
// host and the workbench.
//
// A structured value is one of:
//
//   - nil
//   - bool
//   - json.Number (parsed input), int64 or float64 (engine output)
//   - string
//   - []any
//   - *Record, a plain keyed record that keeps insertion order
//   - *Map, an associative container (see [Map])
package jsonvalue

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Record is a plain keyed record. Keys iterate in insertion order, matching
// the order of the source text or the engine's property order.
type Record = orderedmap.OrderedMap[string, any]

// NewRecord returns an empty Record.
func NewRecord() *Record {
	return orderedmap.New[string, any]()
}

// Entry is a single key/value pair of a Map.
type Entry struct {
	Key   any
	Value any
}

// Map is an insertion-ordered associative container, the engine-side
// counterpart of a JavaScript Map. Unlike a Record its keys may be any
// structured value, and it is not a plain record: it must be normalized
// before it can be rendered as JSON.
type Map struct {
	entries []Entry
}

// NewMap returns a Map holding the given entries, in order. Later entries
// with an equal key replace the value of earlier ones.
func NewMap(entries ...Entry) *Map {
	m := &Map{entries: make([]Entry, 0, len(entries))}
	for _, e := range entries {
		m.Set(e.Key, e.Value)
	}
	return m
}

// Set stores value under key. An existing key keeps its position.
func (m *Map) Set(key, value any) {
	for i := range m.entries {
		if sameKey(m.entries[i].Key, key) {
			m.entries[i].Value = value
			return
		}
	}
	m.entries = append(m.entries, Entry{Key: key, Value: value})
}

// Get returns the value stored under key.
func (m *Map) Get(key any) (any, bool) {
	for _, e := range m.entries {
		if sameKey(e.Key, key) {
			return e.Value, true
		}
	}
	return nil, false
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Entries returns a copy of the entries in insertion order.
func (m *Map) Entries() []Entry {
	if m == nil {
		return nil
	}
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// sameKey reports whether two keys are identical scalars. Composite keys
// (records, arrays, maps) are compared by identity, so two distinct
// composites never collide, as with a JavaScript Map.
func sameKey(a, b any) bool {
	switch a := a.(type) {
	case nil:
		return b == nil
	case bool, string, int64, float64:
		return a == b
	case *Record:
		bb, ok := b.(*Record)
		return ok && a == bb
	case *Map:
		bb, ok := b.(*Map)
		return ok && a == bb
	default:
		return false
	}
}
