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

package tree

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

const mergeTag = "!!merge"

// Parse decodes a single YAML document. Empty input yields a nil node and no
// error. Mapping key order is preserved, aliases are expanded, and merge keys
// ("<<") contribute keys the mapping does not set itself. Documents whose
// aliases expand to far more nodes than they contain are rejected.
func Parse(data []byte) (*Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("tree: parse yaml: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, nil
	}
	d := &decoder{budget: max(countYAML(doc.Content[0])*aliasExpansionFactor, minExpansionBudget)}
	return d.fromYAML(doc.Content[0], 0)
}

const (
	// maxAliasDepth bounds alias nesting so self-referencing documents fail
	// instead of recursing forever.
	maxAliasDepth = 64

	// aliasExpansionFactor and minExpansionBudget bound the number of nodes
	// a document may expand to.
	aliasExpansionFactor = 100
	minExpansionBudget   = 10000
)

var (
	errAliasDepth     = errors.New("tree: alias nesting too deep")
	errAliasExpansion = errors.New("tree: excessive aliasing")
)

// decoder converts yaml.Node trees while tracking how many nodes remain in
// the expansion budget.
type decoder struct {
	budget int
}

func (d *decoder) spend(n int) error {
	d.budget -= n
	if d.budget < 0 {
		return errAliasExpansion
	}
	return nil
}

// countYAML counts the nodes of y without following aliases.
func countYAML(y *yaml.Node) int {
	if y == nil {
		return 0
	}
	n := 1
	for _, c := range y.Content {
		n += countYAML(c)
	}
	return n
}

func (d *decoder) fromYAML(y *yaml.Node, depth int) (*Node, error) {
	if depth > maxAliasDepth {
		return nil, errAliasDepth
	}
	if err := d.spend(1); err != nil {
		return nil, err
	}
	switch y.Kind {
	case yaml.DocumentNode:
		if len(y.Content) == 0 {
			return nil, nil
		}
		return d.fromYAML(y.Content[0], depth)
	case yaml.AliasNode:
		return d.fromYAML(y.Alias, depth+1)
	case yaml.MappingNode:
		return d.mappingFromYAML(y, depth)
	case yaml.SequenceNode:
		out := NewSequence()
		for _, item := range y.Content {
			child, err := d.fromYAML(item, depth)
			if err != nil {
				return nil, err
			}
			out.Append(child)
		}
		return out, nil
	case yaml.ScalarNode:
		var v any
		if err := y.Decode(&v); err != nil {
			return nil, fmt.Errorf("tree: line %d: %w", y.Line, err)
		}
		return Scalar(v), nil
	default:
		return nil, fmt.Errorf("tree: line %d: unsupported yaml node kind %d", y.Line, y.Kind)
	}
}

func (d *decoder) mappingFromYAML(y *yaml.Node, depth int) (*Node, error) {
	out := NewMapping()
	var merges []*Node
	for i := 0; i+1 < len(y.Content); i += 2 {
		key, val := y.Content[i], y.Content[i+1]
		child, err := d.fromYAML(val, depth)
		if err != nil {
			return nil, err
		}
		if key.ShortTag() == mergeTag {
			if child.Kind() == KindSequence {
				merges = append(merges, child.items...)
			} else {
				merges = append(merges, child)
			}
			continue
		}
		if _, dup := out.fields[key.Value]; dup {
			return nil, fmt.Errorf("tree: line %d: duplicate key %q", key.Line, key.Value)
		}
		out.Set(key.Value, child)
	}
	for _, m := range merges {
		if m.Kind() != KindMapping {
			return nil, fmt.Errorf("tree: line %d: merge value is a %s", y.Line, m.Kind())
		}
		for _, k := range m.keys {
			if _, ok := out.fields[k]; ok {
				continue
			}
			v := m.fields[k]
			if err := d.spend(v.size()); err != nil {
				return nil, err
			}
			out.Set(k, v.Clone())
		}
	}
	return out, nil
}

// size counts n and its descendants.
func (n *Node) size() int {
	if n == nil {
		return 1
	}
	total := 1
	for _, k := range n.keys {
		total += n.fields[k].size()
	}
	for _, item := range n.items {
		total += item.size()
	}
	return total
}

// Marshal renders n as YAML, keeping mapping keys in insertion order.
func Marshal(n *Node) ([]byte, error) {
	y, err := toYAML(n)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(y); err != nil {
		return nil, fmt.Errorf("tree: encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("tree: encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

func toYAML(n *Node) (*yaml.Node, error) {
	switch n.Kind() {
	case KindMapping:
		y := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range n.keys {
			v, err := toYAML(n.fields[k])
			if err != nil {
				return nil, err
			}
			y.Content = append(y.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, v)
		}
		return y, nil
	case KindSequence:
		y := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range n.items {
			v, err := toYAML(item)
			if err != nil {
				return nil, err
			}
			y.Content = append(y.Content, v)
		}
		return y, nil
	default:
		y := &yaml.Node{}
		if err := y.Encode(n.Value()); err != nil {
			return nil, fmt.Errorf("tree: encode scalar: %w", err)
		}
		return y, nil
	}
}
