// Package value defines Value, the dynamically-typed argument and reply tree
// exchanged with callers of the proxy.
//
// A Value is a tagged variant over Int, String, Bool, Bytes, Map (ordered
// field name to Value), List and Nil. The schema decides how each variant
// is laid out on the wire; the tree itself carries no wire information.
package value

import (
	"bytes"
	"fmt"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindNil Kind = iota
	KindInt
	KindString
	KindBool
	KindBytes
	KindMap
	KindList
)

// String returns the kind name used in mismatch messages.
func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindBytes:
		return "bytes"
	case KindMap:
		return "map"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// Map is an ordered mapping from field name to Value. Order is the order in
// which the caller supplied the fields; it never affects wire layout.
type Map = orderedmap.OrderedMap[string, Value]

// NewMap creates an empty Map.
func NewMap() *Map {
	return orderedmap.New[string, Value]()
}

// Field is a name/value pair used to build maps.
type Field struct {
	Name  string
	Value Value
}

// F is shorthand for Field{name, v}.
func F(name string, v Value) Field {
	return Field{Name: name, Value: v}
}

// Value is an immutable tagged variant. The zero Value is Nil.
type Value struct {
	kind  Kind
	i     int64
	s     string
	b     []byte
	items []Value
	m     *Map
}

// Nil returns the Nil value (void result, absent optional).
func Nil() Value { return Value{} }

// Int returns an integer value.
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Bool returns a boolean value.
func Bool(v bool) Value { return Value{kind: KindBool, i: boolToInt(v)} }

// Bytes returns an opaque byte value. The slice is not copied.
func Bytes(b []byte) Value { return Value{kind: KindBytes, b: b} }

// List returns a list value.
func List(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindList, items: items}
}

// FromMap wraps m as a Map value. A nil m is an empty map.
func FromMap(m *Map) Value {
	if m == nil {
		m = NewMap()
	}
	return Value{kind: KindMap, m: m}
}

// MapOf builds a Map value from fields in the given order. A repeated name
// keeps the first position and the last value.
func MapOf(fields ...Field) Value {
	m := NewMap()
	for _, f := range fields {
		m.Set(f.Name, f.Value)
	}
	return FromMap(m)
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNil reports whether v is Nil.
func (v Value) IsNil() bool { return v.kind == KindNil }

// AsInt returns the integer held by v.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) { return v.i != 0, v.kind == KindBool }

// AsBytes returns the bytes held by v.
func (v Value) AsBytes() ([]byte, bool) { return v.b, v.kind == KindBytes }

// Items returns the elements of a List value, or nil.
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	return v.items
}

// Map returns the underlying Map of a Map value, or nil.
func (v Value) Map() *Map {
	if v.kind != KindMap {
		return nil
	}
	return v.m
}

// Fields returns the fields of a Map value in caller order.
func (v Value) Fields() []Field {
	if v.kind != KindMap {
		return nil
	}
	fields := make([]Field, 0, v.m.Len())
	for pair := v.m.Oldest(); pair != nil; pair = pair.Next() {
		fields = append(fields, Field{Name: pair.Key, Value: pair.Value})
	}
	return fields
}

// Lookup returns the named field of a Map value.
func (v Value) Lookup(name string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	return v.m.Get(name)
}

// Len returns the number of elements of a List or Map, or the length of a
// String or Bytes value.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.items)
	case KindMap:
		return v.m.Len()
	case KindString:
		return len(v.s)
	case KindBytes:
		return len(v.b)
	default:
		return 0
	}
}

// Equal reports whether a and b hold the same tree. Map comparison ignores
// field order.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNil:
		return true
	case KindInt, KindBool:
		return a.i == b.i
	case KindString:
		return a.s == b.s
	case KindBytes:
		return bytes.Equal(a.b, b.b)
	case KindList:
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if !Equal(a.items[i], b.items[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if a.m.Len() != b.m.Len() {
			return false
		}
		for pair := a.m.Oldest(); pair != nil; pair = pair.Next() {
			other, ok := b.m.Get(pair.Key)
			if !ok || !Equal(pair.Value, other) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders v compactly for logs: {x: 40, y: "foo"}, [1, 2], nil.
func (v Value) String() string {
	var buf bytes.Buffer
	v.format(&buf)
	return buf.String()
}

func (v Value) format(buf *bytes.Buffer) {
	switch v.kind {
	case KindNil:
		buf.WriteString("nil")
	case KindInt:
		buf.WriteString(strconv.FormatInt(v.i, 10))
	case KindString:
		buf.WriteString(strconv.Quote(v.s))
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.i != 0))
	case KindBytes:
		fmt.Fprintf(buf, "0x%x", v.b)
	case KindList:
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteString(", ")
			}
			item.format(buf)
		}
		buf.WriteByte(']')
	case KindMap:
		buf.WriteByte('{')
		first := true
		for pair := v.m.Oldest(); pair != nil; pair = pair.Next() {
			if !first {
				buf.WriteString(", ")
			}
			first = false
			buf.WriteString(pair.Key)
			buf.WriteString(": ")
			pair.Value.format(buf)
		}
		buf.WriteByte('}')
	}
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
