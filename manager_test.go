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

package slogscope_test

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/pjscruggs/slogscope"
	"github.com/pjscruggs/slogscope/tree"
)

const (
	fragmentF1 = "loggers: {x: {level: INFO, handlers: [h1]}}"
	fragmentF2 = "loggers: {x: {level: ERROR}}"
)

// TestMergePrecedence overwrites scalars and keeps sibling keys.
func TestMergePrecedence(t *testing.T) {
	t.Parallel()

	m, rt := newRecordingManager(t)
	mustAdd(t, m, yamlSource("f1", fragmentF1))
	mustAdd(t, m, yamlSource("f2", fragmentF2))

	doc := m.Current()
	if got := lookupValue(t, doc, "loggers", "x", "level"); got != "ERROR" {
		t.Fatalf("loggers.x.level = %v, want ERROR", got)
	}
	handlers, _ := doc.Lookup("loggers", "x", "handlers")
	if want := tree.NewSequence(tree.Scalar("h1")); !handlers.Equal(want) {
		t.Fatalf("loggers.x.handlers = %v, want [h1]", handlers)
	}
	if !rt.last().Equal(doc) {
		t.Fatalf("runtime document = %v, want %v", rt.last(), doc)
	}
	if rt.applies() != 2 {
		t.Fatalf("applies = %d, want 2", rt.applies())
	}
}

// TestMergeIdempotent applies the same fragment twice.
func TestMergeIdempotent(t *testing.T) {
	t.Parallel()

	frag := `
formatters: {plain: {format: text}}
handlers: {out: {class: stream, formatter: plain}}
loggers: {a: {level: DEBUG, propagate: false}}
root: {level: WARN}
`
	once, _ := newRecordingManager(t)
	twice, _ := newRecordingManager(t)
	mustAdd(t, once, yamlSource("frag", frag))
	mustAdd(t, twice, yamlSource("frag", frag))
	mustAdd(t, twice, yamlSource("frag", frag))

	if !once.Current().Equal(twice.Current()) {
		t.Fatalf("document after two applies = %v, want %v", twice.Current(), once.Current())
	}
}

// TestSetLevelIsolation changes one key without touching siblings.
func TestSetLevelIsolation(t *testing.T) {
	t.Parallel()

	m, _ := newRecordingManager(t)
	mustAdd(t, m, yamlSource("base", `
loggers:
  a.b: {level: INFO, handlers: [h1], propagate: false}
  a.c: {handlers: [h2]}
`))
	if err := m.SetLevel("a.b", slogscope.LevelDebug); err != nil {
		t.Fatalf("SetLevel(a.b) returned %v", err)
	}
	if err := m.SetLevel("a.c", slogscope.LevelError); err != nil {
		t.Fatalf("SetLevel(a.c) returned %v", err)
	}
	if err := m.SetLevel("", slogscope.LevelTrace); err != nil {
		t.Fatalf("SetLevel(root) returned %v", err)
	}

	want, err := tree.Parse([]byte(`
disable_existing_loggers: false
loggers:
  a.b: {level: DEBUG, handlers: [h1], propagate: false}
  a.c: {handlers: [h2], level: ERROR}
root: {level: TRACE}
`))
	if err != nil {
		t.Fatalf("tree.Parse() returned %v", err)
	}
	if got := m.Current(); !got.Equal(want) {
		t.Fatalf("Current() = %v, want %v", got, want)
	}
}

// TestSetAllLevels touches configured scopes only.
func TestSetAllLevels(t *testing.T) {
	t.Parallel()

	m, rt := newRecordingManager(t)
	if err := m.SetAllLevels(slogscope.LevelError); err != nil {
		t.Fatalf("SetAllLevels() on empty document returned %v", err)
	}
	if rt.applies() != 0 {
		t.Fatalf("applies = %d, want 0 for an empty loggers section", rt.applies())
	}

	mustAdd(t, m, yamlSource("base", "loggers: {a: {handlers: [h]}, b: {level: DEBUG}}\nroot: {level: INFO}"))
	if err := m.SetAllLevels(slogscope.LevelCritical); err != nil {
		t.Fatalf("SetAllLevels() returned %v", err)
	}

	doc := m.Current()
	for _, scope := range []string{"a", "b"} {
		if got := lookupValue(t, doc, "loggers", scope, "level"); got != "CRITICAL" {
			t.Fatalf("loggers.%s.level = %v, want CRITICAL", scope, got)
		}
	}
	if got := lookupValue(t, doc, "root", "level"); got != "INFO" {
		t.Fatalf("root.level = %v, want INFO", got)
	}
	if _, ok := doc.Lookup("loggers", "a", "handlers"); !ok {
		t.Fatalf("loggers.a.handlers dropped by SetAllLevels")
	}
}

// TestListMatchesSequentialApplies compares a List with separate calls.
func TestListMatchesSequentialApplies(t *testing.T) {
	t.Parallel()

	listed, _ := newRecordingManager(t)
	sequential, _ := newRecordingManager(t)

	mustAdd(t, listed, slogscope.List{yamlSource("f1", fragmentF1), yamlSource("f2", fragmentF2)})
	mustAdd(t, sequential, yamlSource("f1", fragmentF1))
	mustAdd(t, sequential, yamlSource("f2", fragmentF2))

	if !listed.Current().Equal(sequential.Current()) {
		t.Fatalf("List result = %v, want %v", listed.Current(), sequential.Current())
	}
}

// TestUnsupportedSourceLeavesDocument checks the document is byte-for-byte
// unchanged.
func TestUnsupportedSourceLeavesDocument(t *testing.T) {
	t.Parallel()

	m, rt := newRecordingManager(t)
	mustAdd(t, m, yamlSource("f1", fragmentF1))
	before, err := tree.Marshal(m.Current())
	if err != nil {
		t.Fatalf("Marshal() returned %v", err)
	}

	for _, v := range []any{42, 3.5, []any{"ok.yml", true}, struct{}{}} {
		if err := m.AddValue(v); !errors.Is(err, slogscope.ErrUnsupportedSource) {
			t.Fatalf("AddValue(%v) error = %v, want ErrUnsupportedSource", v, err)
		}
	}
	if err := m.AddConfiguration(slogscope.Document{Node: tree.NewSequence(tree.Scalar(1))}); !errors.Is(err, slogscope.ErrUnsupportedSource) {
		t.Fatalf("AddConfiguration(sequence document) error = %v, want ErrUnsupportedSource", err)
	}

	after, err := tree.Marshal(m.Current())
	if err != nil {
		t.Fatalf("Marshal() returned %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Fatalf("document changed:\n%s\nwant:\n%s", after, before)
	}
	if rt.applies() != 1 {
		t.Fatalf("applies = %d, want 1", rt.applies())
	}
}

// TestAddValueTypedCollections accepts string-keyed maps and slices of any
// element type.
func TestAddValueTypedCollections(t *testing.T) {
	t.Parallel()

	m, _ := newRecordingManager(t)
	doc := map[string]map[string]any{
		"loggers": {"x": map[string]any{"level": "INFO"}},
	}
	if err := m.AddValue(doc); err != nil {
		t.Fatalf("AddValue(map[string]map[string]any) returned %v", err)
	}
	list := []map[string]any{
		{"loggers": map[string]any{"y": map[string]any{"level": "DEBUG"}}},
		{"loggers": map[string]any{"x": map[string]any{"level": "ERROR"}}},
	}
	if err := m.AddValue(list); err != nil {
		t.Fatalf("AddValue([]map[string]any) returned %v", err)
	}
	if got := lookupValue(t, m.Current(), "loggers", "x", "level"); got != "ERROR" {
		t.Fatalf("loggers.x.level = %v, want ERROR", got)
	}
	if got := lookupValue(t, m.Current(), "loggers", "y", "level"); got != "DEBUG" {
		t.Fatalf("loggers.y.level = %v, want DEBUG", got)
	}

	if err := m.AddValue(map[int]any{1: "a"}); !errors.Is(err, slogscope.ErrUnsupportedSource) {
		t.Fatalf("AddValue(map[int]any) error = %v, want ErrUnsupportedSource", err)
	}
}

// TestEmptySourcesAreNoOps covers nil and empty fragments.
func TestEmptySourcesAreNoOps(t *testing.T) {
	t.Parallel()

	m, rt := newRecordingManager(t)
	for _, src := range []slogscope.Source{
		nil,
		slogscope.Document{},
		slogscope.Document{Node: tree.NewMapping()},
		slogscope.List{},
		yamlSource("blank", "  \n"),
	} {
		if err := m.AddConfiguration(src); err != nil {
			t.Fatalf("AddConfiguration(%#v) returned %v", src, err)
		}
	}
	if err := m.AddValue(nil); err != nil {
		t.Fatalf("AddValue(nil) returned %v", err)
	}
	if rt.applies() != 0 {
		t.Fatalf("applies = %d, want 0", rt.applies())
	}
}

func TestPathNotFound(t *testing.T) {
	t.Parallel()

	m, _ := newRecordingManager(t)
	if err := m.AddConfiguration(slogscope.Path("no/such/file.yml")); !errors.Is(err, slogscope.ErrConfigurationNotFound) {
		t.Fatalf("AddConfiguration(missing path) error = %v, want ErrConfigurationNotFound", err)
	}
	if err := m.AddValue("no/such/file.yml"); !errors.Is(err, slogscope.ErrConfigurationNotFound) {
		t.Fatalf("AddValue(missing path) error = %v, want ErrConfigurationNotFound", err)
	}
	if err := m.AddConfiguration(slogscope.Resource("no/such/resource.yml")); !errors.Is(err, slogscope.ErrConfigurationNotFound) {
		t.Fatalf("AddConfiguration(missing resource) error = %v, want ErrConfigurationNotFound", err)
	}
}

// TestPathFallsBackToResources reads bundled resources when no file exists.
func TestPathFallsBackToResources(t *testing.T) {
	t.Parallel()

	resources := fstest.MapFS{
		"configs/base.yml":  {Data: []byte("root: {level: WARN}\n")},
		"configs/extra.yml": {Data: []byte("loggers: {svc: {level: DEBUG}}\n")},
	}
	m, _ := newRecordingManager(t, slogscope.WithResources(resources))

	mustAdd(t, m, slogscope.Path("configs/base.yml"))
	mustAdd(t, m, slogscope.Resource("./configs/extra.yml"))

	doc := m.Current()
	if got := lookupValue(t, doc, "root", "level"); got != "WARN" {
		t.Fatalf("root.level = %v, want WARN", got)
	}
	if got := lookupValue(t, doc, "loggers", "svc", "level"); got != "DEBUG" {
		t.Fatalf("loggers.svc.level = %v, want DEBUG", got)
	}
}

// TestFileNamingFurtherSources follows files that list other files.
func TestFileNamingFurtherSources(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first := writeFile(t, dir, "first.yml", fragmentF1)
	second := writeFile(t, dir, "second.yml", fragmentF2)
	index := writeFile(t, dir, "index.yml", fmt.Sprintf("- %q\n- %q\n", first, second))

	m, _ := newRecordingManager(t)
	mustAdd(t, m, slogscope.Path(index))
	if got := lookupValue(t, m.Current(), "loggers", "x", "level"); got != "ERROR" {
		t.Fatalf("loggers.x.level = %v, want ERROR", got)
	}

	self := filepath.Join(dir, "self.yml")
	writeFile(t, dir, "self.yml", fmt.Sprintf("%q\n", self))
	if err := m.AddConfiguration(slogscope.Path(self)); !errors.Is(err, slogscope.ErrUnsupportedSource) {
		t.Fatalf("AddConfiguration(self-referencing file) error = %v, want ErrUnsupportedSource", err)
	}
}

// TestParseErrorLeavesDocument rejects malformed content before merging.
func TestParseErrorLeavesDocument(t *testing.T) {
	t.Parallel()

	m, rt := newRecordingManager(t)
	mustAdd(t, m, yamlSource("f1", fragmentF1))

	err := m.AddConfiguration(yamlSource("broken.yml", "loggers: {x: [1, 2"))
	if !errors.Is(err, slogscope.ErrParse) {
		t.Fatalf("AddConfiguration(broken) error = %v, want ErrParse", err)
	}
	if !strings.Contains(err.Error(), "broken.yml") {
		t.Fatalf("error %q does not name the fragment", err)
	}
	if got := lookupValue(t, m.Current(), "loggers", "x", "level"); got != "INFO" {
		t.Fatalf("loggers.x.level = %v, want INFO", got)
	}
	if rt.applies() != 1 {
		t.Fatalf("applies = %d, want 1", rt.applies())
	}
}

// TestRuntimeRejectionLeavesDocument keeps the store in step with the
// runtime when Apply fails.
func TestRuntimeRejectionLeavesDocument(t *testing.T) {
	t.Parallel()

	m, err := slogscope.NewManager(slogscope.WithStderr(io.Discard))
	if err != nil {
		t.Fatalf("NewManager() returned %v", err)
	}
	defer m.Close()

	mustAdd(t, m, yamlSource("base", "loggers: {svc: {level: INFO}}"))
	before := m.Current()

	err = m.AddConfiguration(yamlSource("ghost", "loggers: {svc: {handlers: [ghost]}}"))
	if !errors.Is(err, slogscope.ErrRuntimeApply) || !errors.Is(err, slogscope.ErrUnknownHandler) {
		t.Fatalf("AddConfiguration(unknown handler) error = %v, want ErrRuntimeApply wrapping ErrUnknownHandler", err)
	}
	if got := m.Current(); !got.Equal(before) {
		t.Fatalf("Current() = %v after rejection, want %v", got, before)
	}
}

// TestDisableExistingLoggersForcedFalse overrides fragments that set it.
func TestDisableExistingLoggersForcedFalse(t *testing.T) {
	t.Parallel()

	m, rt := newRecordingManager(t)
	mustAdd(t, m, yamlSource("f", "disable_existing_loggers: true\nroot: {level: INFO}"))
	for name, doc := range map[string]*tree.Node{"Current": m.Current(), "applied": rt.last()} {
		if got := lookupValue(t, doc, "disable_existing_loggers"); got != false {
			t.Fatalf("%s disable_existing_loggers = %v, want false", name, got)
		}
	}
}

// TestReplace resets the document and filters, restoring both on failure.
func TestReplace(t *testing.T) {
	t.Parallel()

	m, _ := newRecordingManager(t)
	mustAdd(t, m, yamlSource("f1", fragmentF1))
	m.SetLoggingFields(nil, map[string]any{"service": "api"})

	if err := m.Replace(slogscope.Path("no/such/file.yml")); !errors.Is(err, slogscope.ErrConfigurationNotFound) {
		t.Fatalf("Replace(missing) error = %v, want ErrConfigurationNotFound", err)
	}
	if got := lookupValue(t, m.Current(), "loggers", "x", "level"); got != "INFO" {
		t.Fatalf("loggers.x.level after failed Replace = %v, want INFO", got)
	}
	if got := len(m.Filters()); got != 1 {
		t.Fatalf("len(Filters()) after failed Replace = %d, want 1", got)
	}

	if err := m.Replace(yamlSource("root", "root: {level: ERROR}")); err != nil {
		t.Fatalf("Replace() returned %v", err)
	}
	doc := m.Current()
	if _, ok := doc.Get("loggers"); ok {
		t.Fatalf("loggers survived Replace: %v", doc)
	}
	if got := lookupValue(t, doc, "root", "level"); got != "ERROR" {
		t.Fatalf("root.level = %v, want ERROR", got)
	}
	if got := len(m.Filters()); got != 0 {
		t.Fatalf("len(Filters()) = %d, want 0", got)
	}
}

// TestConcurrentMergesAreSerialized applies disjoint fragments from many
// goroutines.
func TestConcurrentMergesAreSerialized(t *testing.T) {
	t.Parallel()

	m, rt := newRecordingManager(t)
	const n = 32
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			frag := fmt.Sprintf("loggers: {scope%d: {level: DEBUG}}", i)
			if err := m.AddConfiguration(yamlSource("frag", frag)); err != nil {
				t.Errorf("AddConfiguration(%d) returned %v", i, err)
			}
		}()
	}
	wg.Wait()

	loggers, _ := m.Current().Get("loggers")
	if got := loggers.Len(); got != n {
		t.Fatalf("loggers has %d scopes, want %d", got, n)
	}
	if rt.applies() != n {
		t.Fatalf("applies = %d, want %d", rt.applies(), n)
	}
	if !rt.last().Equal(m.Current()) {
		t.Fatalf("last applied document differs from Current()")
	}
}

// TestNewManagerSources merges WithSources in order and fails construction
// on the first bad source.
func TestNewManagerSources(t *testing.T) {
	t.Parallel()

	rt := newRecordingRuntime()
	m, err := slogscope.NewManager(
		slogscope.WithRuntime(rt),
		slogscope.WithSources(yamlSource("f1", fragmentF1), yamlSource("f2", fragmentF2)),
	)
	if err != nil {
		t.Fatalf("NewManager() returned %v", err)
	}
	defer m.Close()
	if got := lookupValue(t, m.Current(), "loggers", "x", "level"); got != "ERROR" {
		t.Fatalf("loggers.x.level = %v, want ERROR", got)
	}

	_, err = slogscope.NewManager(
		slogscope.WithRuntime(newRecordingRuntime()),
		slogscope.WithSources(slogscope.Path("no/such/file.yml")),
	)
	if !errors.Is(err, slogscope.ErrConfigurationNotFound) {
		t.Fatalf("NewManager(missing source) error = %v, want ErrConfigurationNotFound", err)
	}
}

// TestClosedManagerRejectsConfiguration returns ErrClosed after Close.
func TestClosedManagerRejectsConfiguration(t *testing.T) {
	t.Parallel()

	m, _ := newRecordingManager(t)
	if err := m.Close(); err != nil {
		t.Fatalf("Close() returned %v", err)
	}
	if err := m.AddConfiguration(yamlSource("f1", fragmentF1)); !errors.Is(err, slogscope.ErrClosed) {
		t.Fatalf("AddConfiguration() after Close error = %v, want ErrClosed", err)
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("os.WriteFile(%s) returned %v", path, err)
	}
	return path
}
