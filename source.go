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

package slogscope

import (
	"fmt"
	"reflect"

	"github.com/pjscruggs/slogscope/tree"
)

// Source is a configuration fragment accepted by [Manager.AddConfiguration].
// The set of implementations is closed: [Document], [Path], [Resource],
// [YAML], and [List]. A nil Source is a no-op.
type Source interface {
	source()
}

// Document is an already parsed fragment. Its node must be a mapping; a
// nil or null node is a no-op.
type Document struct {
	Node *tree.Node
}

// Path names a configuration file. When no file exists at the path it is
// looked up in the manager's bundled resources under the same name.
type Path string

// Resource names a file in the manager's bundled resources only.
type Resource string

// YAML is raw YAML content. Name identifies it in errors.
type YAML struct {
	Name string
	Data []byte
}

// List applies each source in order.
type List []Source

func (Document) source() {}
func (Path) source()     {}
func (Resource) source() {}
func (YAML) source()     {}
func (List) source()     {}

// FromValue converts loosely typed values into a Source: nil, *tree.Node,
// string-keyed maps of any value type (documents), strings (paths), and
// slices or arrays of those (lists). Existing
// Source values are returned unchanged. Anything else fails with
// [ErrUnsupportedSource].
func FromValue(v any) (Source, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case Source:
		return val, nil
	case *tree.Node:
		return sourceFromNode(val)
	case string:
		return Path(val), nil
	case []string:
		list := make(List, 0, len(val))
		for _, p := range val {
			list = append(list, Path(p))
		}
		return list, nil
	case []any:
		list := make(List, 0, len(val))
		for i, item := range val {
			src, err := FromValue(item)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			list = append(list, src)
		}
		return list, nil
	case map[string]any:
		n, err := tree.FromValue(val)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnsupportedSource, err)
		}
		return Document{Node: n}, nil
	}

	rv := reflect.ValueOf(v)
	switch {
	case rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String:
		n, err := tree.FromValue(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnsupportedSource, err)
		}
		return Document{Node: n}, nil
	case rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8,
		rv.Kind() == reflect.Array:
		list := make(List, 0, rv.Len())
		for i := range rv.Len() {
			src, err := FromValue(rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			list = append(list, src)
		}
		return list, nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedSource, v)
}

// sourceFromNode classifies parsed content: mappings are documents,
// sequences are lists, and strings name further sources.
func sourceFromNode(n *tree.Node) (Source, error) {
	if n.IsNull() {
		return nil, nil
	}
	switch n.Kind() {
	case tree.KindMapping:
		return Document{Node: n}, nil
	case tree.KindSequence:
		list := make(List, 0, n.Len())
		for i, item := range n.Items() {
			src, err := sourceFromNode(item)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			list = append(list, src)
		}
		return list, nil
	}
	if s, ok := n.Text(); ok {
		return Path(s), nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedSource, n.Value())
}
