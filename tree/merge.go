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

// Merge returns a new document combining dst and src. Neither input is
// modified.
//
// Keys present in both documents whose values are both mappings are merged
// recursively. In every other case the value from src replaces the value from
// dst; sequences and scalars are replaced wholesale, never concatenated. Keys
// from dst keep their position and keys only present in src are appended in
// src order.
//
// A nil src yields a copy of dst.
func Merge(dst, src *Node) *Node {
	if src == nil {
		return dst.Clone()
	}
	if dst.Kind() != KindMapping || src.Kind() != KindMapping {
		return src.Clone()
	}

	out := NewMapping()
	for _, k := range dst.keys {
		if sv, ok := src.fields[k]; ok {
			out.Set(k, Merge(dst.fields[k], sv))
			continue
		}
		out.Set(k, dst.fields[k].Clone())
	}
	for _, k := range src.keys {
		if _, ok := dst.fields[k]; ok {
			continue
		}
		out.Set(k, src.fields[k].Clone())
	}
	return out
}
