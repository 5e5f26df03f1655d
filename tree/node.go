// Copyright 2026 Patrick J. Scruggs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package tree models configuration documents as a tree of mappings,
// sequences, and scalars.
//
// Mappings keep their keys unique and remember insertion order so documents
// render the way they were written. The package is independent of any
// serialization format; YAML support lives in yaml.go and is optional for
// callers that build documents in code.
package tree

import (
	"fmt"
	"math"
	"reflect"
	"slices"
	"sort"
)

// Kind identifies the variant held by a Node.
type Kind int

const (
	// KindScalar is a string, number, boolean, or null leaf.
	KindScalar Kind = iota
	// KindMapping is a keyed collection with insertion order preserved.
	KindMapping
	// KindSequence is an ordered list of nodes.
	KindSequence
)

// String returns a lower-case name for the kind.
func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindMapping:
		return "mapping"
	case KindSequence:
		return "sequence"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Node is one element of a configuration document. A nil *Node behaves like
// a null scalar for every read accessor.
type Node struct {
	kind   Kind
	keys   []string
	fields map[string]*Node
	items  []*Node
	value  any
}

// NewMapping returns an empty mapping node.
func NewMapping() *Node {
	return &Node{kind: KindMapping, fields: make(map[string]*Node)}
}

// NewSequence returns a sequence holding items in order. Nil items are stored
// as null scalars.
func NewSequence(items ...*Node) *Node {
	n := &Node{kind: KindSequence, items: make([]*Node, 0, len(items))}
	for _, item := range items {
		n.Append(item)
	}
	return n
}

// Scalar returns a leaf node for v. Integer and floating point values are
// normalized to int64 and float64 so equal documents compare equal no matter
// how they were built.
func Scalar(v any) *Node {
	return &Node{kind: KindScalar, value: normalizeScalar(v)}
}

// Kind reports the variant held by n.
func (n *Node) Kind() Kind {
	if n == nil {
		return KindScalar
	}
	return n.kind
}

// IsNull reports whether n is nil or a null scalar.
func (n *Node) IsNull() bool {
	return n == nil || (n.kind == KindScalar && n.value == nil)
}

// IsEmpty reports whether n carries no configuration: a null scalar, an empty
// mapping, or an empty sequence.
func (n *Node) IsEmpty() bool {
	switch n.Kind() {
	case KindMapping:
		return len(n.keys) == 0
	case KindSequence:
		return len(n.items) == 0
	default:
		return n.IsNull()
	}
}

// Len returns the number of keys of a mapping or items of a sequence.
func (n *Node) Len() int {
	switch n.Kind() {
	case KindMapping:
		return len(n.keys)
	case KindSequence:
		return len(n.items)
	default:
		return 0
	}
}

// Keys returns the mapping keys in insertion order.
func (n *Node) Keys() []string {
	if n.Kind() != KindMapping {
		return nil
	}
	return slices.Clone(n.keys)
}

// Get returns the value stored under key when n is a mapping.
func (n *Node) Get(key string) (*Node, bool) {
	if n.Kind() != KindMapping {
		return nil, false
	}
	v, ok := n.fields[key]
	return v, ok
}

// Set stores value under key. Existing keys keep their position; new keys are
// appended. Set panics when n is not a mapping.
func (n *Node) Set(key string, value *Node) {
	if n.Kind() != KindMapping {
		panic(fmt.Sprintf("tree: Set on %s node", n.Kind()))
	}
	if value == nil {
		value = Scalar(nil)
	}
	if _, ok := n.fields[key]; !ok {
		n.keys = append(n.keys, key)
	}
	n.fields[key] = value
}

// Delete removes key from a mapping. It is a no-op for other kinds.
func (n *Node) Delete(key string) {
	if n.Kind() != KindMapping {
		return
	}
	if _, ok := n.fields[key]; !ok {
		return
	}
	delete(n.fields, key)
	n.keys = slices.DeleteFunc(n.keys, func(k string) bool { return k == key })
}

// Items returns the sequence items in order.
func (n *Node) Items() []*Node {
	if n.Kind() != KindSequence {
		return nil
	}
	return slices.Clone(n.items)
}

// Append adds item to the end of a sequence. Append panics when n is not a
// sequence.
func (n *Node) Append(item *Node) {
	if n.Kind() != KindSequence {
		panic(fmt.Sprintf("tree: Append on %s node", n.Kind()))
	}
	if item == nil {
		item = Scalar(nil)
	}
	n.items = append(n.items, item)
}

// Value returns the scalar value, or nil for mappings and sequences.
func (n *Node) Value() any {
	if n.Kind() != KindScalar || n == nil {
		return nil
	}
	return n.value
}

// Text returns the scalar value as a string. Only string scalars report ok.
func (n *Node) Text() (string, bool) {
	s, ok := n.Value().(string)
	return s, ok
}

// Lookup follows path through nested mappings.
func (n *Node) Lookup(path ...string) (*Node, bool) {
	cur := n
	for _, key := range path {
		next, ok := cur.Get(key)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	switch n.kind {
	case KindMapping:
		out := &Node{kind: KindMapping, keys: slices.Clone(n.keys), fields: make(map[string]*Node, len(n.fields))}
		for k, v := range n.fields {
			out.fields[k] = v.Clone()
		}
		return out
	case KindSequence:
		out := &Node{kind: KindSequence, items: make([]*Node, len(n.items))}
		for i, v := range n.items {
			out.items[i] = v.Clone()
		}
		return out
	default:
		return &Node{kind: KindScalar, value: n.value}
	}
}

// Equal reports whether n and other hold the same document. Mapping key order
// is not significant; sequence order is.
func (n *Node) Equal(other *Node) bool {
	if n.IsNull() || other.IsNull() {
		return n.IsNull() && other.IsNull()
	}
	if n.kind != other.kind {
		return false
	}
	switch n.kind {
	case KindMapping:
		if len(n.fields) != len(other.fields) {
			return false
		}
		for k, v := range n.fields {
			ov, ok := other.fields[k]
			if !ok || !v.Equal(ov) {
				return false
			}
		}
		return true
	case KindSequence:
		return slices.EqualFunc(n.items, other.items, func(a, b *Node) bool { return a.Equal(b) })
	default:
		return reflect.DeepEqual(n.value, other.value)
	}
}

// String renders n for debugging.
func (n *Node) String() string {
	return fmt.Sprint(n.Interface())
}

// Interface converts n into plain Go values: map[string]any, []any, and
// scalars.
func (n *Node) Interface() any {
	switch n.Kind() {
	case KindMapping:
		out := make(map[string]any, len(n.keys))
		for _, k := range n.keys {
			out[k] = n.fields[k].Interface()
		}
		return out
	case KindSequence:
		out := make([]any, len(n.items))
		for i, item := range n.items {
			out[i] = item.Interface()
		}
		return out
	default:
		return n.Value()
	}
}

// FromValue converts plain Go values into a Node. Maps with string keys become
// mappings with keys sorted, since Go map iteration order is unspecified.
// Slices and arrays become sequences. A *Node is cloned.
func FromValue(v any) (*Node, error) {
	switch val := v.(type) {
	case nil:
		return Scalar(nil), nil
	case *Node:
		if val == nil {
			return Scalar(nil), nil
		}
		return val.Clone(), nil
	case map[string]any:
		out := NewMapping()
		for _, k := range sortedKeys(val) {
			child, err := FromValue(val[k])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out.Set(k, child)
		}
		return out, nil
	case []any:
		out := NewSequence()
		for i, item := range val {
			child, err := FromValue(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out.Append(child)
		}
		return out, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("tree: unsupported map key type %s", rv.Type().Key())
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		out := NewMapping()
		for _, k := range keys {
			child, err := FromValue(rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface())
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out.Set(k, child)
		}
		return out, nil
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return Scalar(string(rv.Bytes())), nil
		}
		out := NewSequence()
		for i := range rv.Len() {
			child, err := FromValue(rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out.Append(child)
		}
		return out, nil
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return Scalar(v), nil
	default:
		return nil, fmt.Errorf("tree: unsupported value type %T", v)
	}
}

// MustFromValue is like FromValue but panics on error. It is meant for
// literals in tests and examples.
func MustFromValue(v any) *Node {
	n, err := FromValue(v)
	if err != nil {
		panic(err)
	}
	return n
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// normalizeScalar folds the numeric types onto int64 and float64.
func normalizeScalar(v any) any {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return u
		}
		return int64(u)
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	default:
		return v
	}
}
